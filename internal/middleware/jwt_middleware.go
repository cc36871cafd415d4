package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/services"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalMobileNo = "mobile_no"
)

// TokenValidator checks a token against the device session.
type TokenValidator interface {
	ValidateToken(token string) (jwt.MapClaims, error)
}

// AuthRequired rejects requests without a token for the session stored on
// this device. The token is read from "Authorization: Bearer <token>", or
// from the token query parameter for clients that cannot set headers
// (EventSource, the payment web view).
func AuthRequired(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": err.Error(),
			})
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			message := "Invalid or expired token"
			if errors.Is(err, services.ErrNoSession) {
				message = "Not logged in on this device"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": message,
				"error":   err.Error(),
			})
		}

		userID, _ := claims["user_id"].(string)
		mobileNo, _ := claims["mobile_no"].(string)
		c.Locals(LocalUserID, userID)
		c.Locals(LocalMobileNo, mobileNo)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("Authorization header is required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("Authorization header format must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}
