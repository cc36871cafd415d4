package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

// ContentHandler serves static content and the feedback forms.
type ContentHandler struct {
	service  *services.ContentService
	validate *validator.Validate
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(service *services.ContentService) *ContentHandler {
	return &ContentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the content routes with the Fiber app.
func (h *ContentHandler) RegisterRoutes(router fiber.Router) {
	contentRoutes := router.Group("/content")
	contentRoutes.Get("/testimonials", h.HandleTestimonials)
	contentRoutes.Get("/banners", h.HandleBanners)
	contentRoutes.Get("/offers", h.HandleOffers)
	contentRoutes.Get("/policies/:kind", h.HandlePolicy)
	contentRoutes.Post("/feedback", h.HandleFeedback)
	contentRoutes.Post("/reviews", h.HandleAppReview)
	contentRoutes.Post("/subscribe", h.HandleSubscribe)
	contentRoutes.Post("/subscribe/otp", h.HandleSubscribeOTP)
}

func (h *ContentHandler) HandleTestimonials(c *fiber.Ctx) error {
	body, err := h.service.Testimonials(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load testimonials", err)
	}
	return rawJSON(c, body)
}

func (h *ContentHandler) HandleBanners(c *fiber.Ctx) error {
	body, err := h.service.Banners(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load banners", err)
	}
	return rawJSON(c, body)
}

func (h *ContentHandler) HandleOffers(c *fiber.Ctx) error {
	body, err := h.service.Offers(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load offers", err)
	}
	return rawJSON(c, body)
}

// HandlePolicy returns privacy, terms, refund, shipping or about text.
func (h *ContentHandler) HandlePolicy(c *fiber.Ctx) error {
	body, err := h.service.Policy(c.UserContext(), c.Params("kind"))
	if err != nil {
		return respondError(c, "Could not load policy", err)
	}
	return rawJSON(c, body)
}

func (h *ContentHandler) HandleFeedback(c *fiber.Ctx) error {
	var fb models.Feedback
	if ok, err := parseAndValidate(c, h.validate, &fb); !ok {
		return err
	}
	res, err := h.service.SubmitFeedback(c.UserContext(), fb)
	if err != nil {
		return respondError(c, "Could not send feedback", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": res.Message,
	})
}

func (h *ContentHandler) HandleAppReview(c *fiber.Ctx) error {
	var review models.AppReview
	if ok, err := parseAndValidate(c, h.validate, &review); !ok {
		return err
	}
	res, err := h.service.SubmitAppReview(c.UserContext(), review)
	if err != nil {
		return respondError(c, "Could not submit review", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": res.Message,
	})
}

func (h *ContentHandler) HandleSubscribe(c *fiber.Ctx) error {
	var req models.SubscribeRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	res, err := h.service.Subscribe(c.UserContext(), req)
	if err != nil {
		return respondError(c, "Could not subscribe", err)
	}
	return c.JSON(fiber.Map{
		"message": res.Message,
	})
}

func (h *ContentHandler) HandleSubscribeOTP(c *fiber.Ctx) error {
	var req models.OTPRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	res, err := h.service.VerifySubscription(c.UserContext(), req)
	if err != nil {
		return respondError(c, "Could not verify subscription", err)
	}
	return c.JSON(fiber.Map{
		"message": res.Message,
	})
}
