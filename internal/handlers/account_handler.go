package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

// AccountHandler serves the logged-in user's orders and wishlist. Its
// routes are expected behind middleware.AuthRequired.
type AccountHandler struct {
	service  *services.AccountService
	validate *validator.Validate
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	accountRoutes := router.Group("/account")
	accountRoutes.Get("/orders", h.HandleOrders)
	accountRoutes.Get("/orders/:orderNo", h.HandleOrderDetail)
	accountRoutes.Get("/wishlist", h.HandleWishlist)
	accountRoutes.Post("/wishlist", h.HandleAddToWishlist)
	accountRoutes.Delete("/wishlist/:id", h.HandleRemoveFromWishlist)
}

func (h *AccountHandler) HandleOrders(c *fiber.Ctx) error {
	body, err := h.service.Orders(c.UserContext())
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return rawJSON(c, body)
}

func (h *AccountHandler) HandleOrderDetail(c *fiber.Ctx) error {
	body, err := h.service.OrderDetail(c.UserContext(), c.Params("orderNo"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return rawJSON(c, body)
}

func (h *AccountHandler) HandleWishlist(c *fiber.Ctx) error {
	body, err := h.service.Wishlist(c.UserContext())
	if err != nil {
		return respondError(c, "Could not retrieve wishlist", err)
	}
	return rawJSON(c, body)
}

func (h *AccountHandler) HandleAddToWishlist(c *fiber.Ctx) error {
	var item models.WishlistItem
	if ok, err := parseAndValidate(c, h.validate, &item); !ok {
		return err
	}

	res, err := h.service.AddToWishlist(c.UserContext(), item)
	if err != nil {
		return respondError(c, "Could not add to wishlist", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": res.Message,
	})
}

func (h *AccountHandler) HandleRemoveFromWishlist(c *fiber.Ctx) error {
	res, err := h.service.RemoveFromWishlist(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not remove from wishlist", err)
	}
	return c.JSON(fiber.Map{
		"message": res.Message,
	})
}
