package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/register/otp", h.HandleRegisterOTP)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/forgot-password", h.HandleForgotPassword)
	authRoutes.Post("/logout", h.HandleLogout)

	router.Get("/session", h.HandleSession)
}

// HandleRegister submits the sign-up form. The backend answers by sending
// an OTP to the mobile number.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	res, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		log.Printf("Error registering %s: %v", req.Mobile, err)
		return respondError(c, "Registration failed", err)
	}
	return c.JSON(fiber.Map{
		"message": res.Message,
	})
}

// HandleRegisterOTP completes registration and logs the new user in.
func (h *AuthHandler) HandleRegisterOTP(c *fiber.Ctx) error {
	var req models.OTPRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	sess, token, err := h.authService.VerifyRegistration(c.UserContext(), req.Mobile, req.OTP)
	if err != nil {
		log.Printf("Error verifying registration OTP for %s: %v", req.Mobile, err)
		return respondError(c, "OTP verification failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration complete",
		"token":   token,
		"session": sess,
	})
}

// HandleLogin logs in with mobile number and password and issues a JWT.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	sess, token, err := h.authService.Login(c.UserContext(), req.MobileNo, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.MobileNo, err)
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication failed",
				"error":   err.Error(),
			})
		}
		return respondError(c, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"session": sess,
	})
}

func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req struct {
		MobileNo string `json:"mobile_no" validate:"required,numeric,min=10,max=13"`
	}
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	res, err := h.authService.ForgotPassword(c.UserContext(), req.MobileNo)
	if err != nil {
		return respondError(c, "Password reset failed", err)
	}
	return c.JSON(fiber.Map{
		"message": res.Message,
	})
}

// HandleLogout drops the stored session. Tokens issued for it stop working.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(); err != nil {
		return respondError(c, "Could not log out", err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

// HandleSession returns the stored session, or 401 when logged out.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	sess, err := h.authService.CurrentSession()
	if err != nil {
		return respondError(c, "No active session", err)
	}
	return c.JSON(fiber.Map{
		"session":      sess,
		"display_name": sess.DisplayName(),
	})
}
