package handlers

import (
	"bytes"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Get("/", h.HandleGetCheckout)
	checkoutRoutes.Post("/start", h.HandleStart)
	checkoutRoutes.Get("/billing-address", h.HandleBillingAddress)
	checkoutRoutes.Post("/address", h.HandleAddress)
	checkoutRoutes.Post("/payment", h.HandlePayment)
	checkoutRoutes.Get("/page", h.HandlePaymentPage)
	checkoutRoutes.Post("/gateway", h.HandleGateway)
	checkoutRoutes.Post("/reconcile", h.HandleReconcile)
}

// HandleGetCheckout returns the persisted checkout record.
func (h *CheckoutHandler) HandleGetCheckout(c *fiber.Ctx) error {
	rec, err := h.service.Current()
	if err != nil {
		return respondError(c, "No checkout in progress", err)
	}
	return c.JSON(rec)
}

// HandleStart opens the order summary step for the current cart.
func (h *CheckoutHandler) HandleStart(c *fiber.Ctx) error {
	rec, err := h.service.Start(c.UserContext())
	if err != nil {
		return respondError(c, "Could not start checkout", err)
	}
	return c.JSON(rec)
}

func (h *CheckoutHandler) HandleBillingAddress(c *fiber.Ctx) error {
	body, err := h.service.BillingAddress(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load billing address", err)
	}
	return rawJSON(c, body)
}

// HandleAddress submits the billing/delivery address form.
func (h *CheckoutHandler) HandleAddress(c *fiber.Ctx) error {
	var form models.AddressForm
	if ok, err := parseAndValidate(c, h.validate, &form); !ok {
		return err
	}

	rec, err := h.service.SubmitAddress(c.UserContext(), form)
	if err != nil {
		if errors.Is(err, services.ErrTermsNotAccepted) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Please accept the terms and conditions",
				"error":   err.Error(),
			})
		}
		return respondError(c, "Could not save address", err)
	}
	return c.JSON(rec)
}

// HandlePayment creates the gateway order. The UI then opens page_url.
func (h *CheckoutHandler) HandlePayment(c *fiber.Ctx) error {
	rec, err := h.service.InitiatePayment(c.UserContext())
	if err != nil {
		return respondError(c, "Could not initiate payment", err)
	}
	return c.JSON(fiber.Map{
		"checkout": rec,
		"page_url": c.BaseURL() + siblingPath(c.Path(), "/payment", "/page"),
	})
}

// HandlePaymentPage serves the gateway checkout page for the pending payment.
func (h *CheckoutHandler) HandlePaymentPage(c *fiber.Ctx) error {
	callback := c.BaseURL() + siblingPath(c.Path(), "/page", "/gateway")

	var buf bytes.Buffer
	if err := h.service.RenderPaymentPage(&buf, callback); err != nil {
		return respondError(c, "No payment pending", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// HandleGateway receives the outcome posted by the payment page.
func (h *CheckoutHandler) HandleGateway(c *fiber.Ctx) error {
	var msg models.GatewayMessage
	if ok, err := parseAndValidate(c, h.validate, &msg); !ok {
		return err
	}

	rec, err := h.service.HandleGatewayMessage(c.UserContext(), msg)
	if err != nil {
		log.Printf("Error handling gateway outcome %s: %v", msg.Outcome, err)
		return respondError(c, "Could not process payment outcome", err)
	}
	return c.JSON(rec)
}

// HandleReconcile re-checks a payment whose verification failed.
func (h *CheckoutHandler) HandleReconcile(c *fiber.Ctx) error {
	rec, err := h.service.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, "Could not reconcile payment", err)
	}
	return c.JSON(rec)
}

// siblingPath replaces the trailing segment of path.
func siblingPath(path, from, to string) string {
	return strings.TrimSuffix(path, from) + to
}
