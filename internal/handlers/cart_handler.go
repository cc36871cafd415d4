package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

const badgeKeepAlive = 15 * time.Second

// CartHandler handles HTTP requests for the local cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Get("/count", h.HandleCount)
	cartRoutes.Get("/badge", h.HandleBadge)
	cartRoutes.Post("/", h.HandleAdd)
	cartRoutes.Patch("/:bcode", h.HandleUpdateQuantity)
	cartRoutes.Delete("/:bcode", h.HandleRemove)
	cartRoutes.Delete("/", h.HandleClear)
}

// HandleGetCart returns the cart lines with their totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	items, err := h.service.Items()
	if err != nil {
		return respondError(c, "Could not load cart", err)
	}
	return h.cartResponse(c, fiber.StatusOK, items)
}

func (h *CartHandler) HandleCount(c *fiber.Ctx) error {
	n, err := h.service.Count()
	if err != nil {
		return respondError(c, "Could not load cart", err)
	}
	return c.JSON(models.BadgeEvent{Count: n})
}

// HandleBadge streams the cart count as server-sent events: the current
// count first, then one event per cart change.
func (h *CartHandler) HandleBadge(c *fiber.Ctx) error {
	n, err := h.service.Count()
	if err != nil {
		return respondError(c, "Could not load cart", err)
	}
	events, unsubscribe := h.service.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if err := writeBadgeEvent(w, models.BadgeEvent{Count: n}); err != nil {
			return
		}
		ticker := time.NewTicker(badgeKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeBadgeEvent(w, ev); err != nil {
					log.Printf("Badge stream closed: %v", err)
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeBadgeEvent(w *bufio.Writer, ev models.BadgeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: badge\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// HandleAdd adds a product to the cart, merging with an existing line of
// the same bcode.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var item models.CartItem
	if ok, err := parseAndValidate(c, h.validate, &item); !ok {
		return err
	}

	items, err := h.service.Add(c.UserContext(), item)
	if err != nil {
		log.Printf("Error adding %s to cart: %v", item.BCode, err)
		return respondError(c, "Could not add to cart", err)
	}
	return h.cartResponse(c, fiber.StatusCreated, items)
}

type quantityUpdate struct {
	Quantity *int   `json:"quantity"`
	Op       string `json:"op" validate:"omitempty,oneof=increment decrement"`
}

// HandleUpdateQuantity sets a line's quantity, or steps it with
// {"op":"increment"} / {"op":"decrement"}. Quantities never go below 1.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	bcode := c.Params("bcode")
	var req quantityUpdate
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	var (
		items []models.CartItem
		err   error
	)
	switch {
	case req.Op == "increment":
		items, err = h.service.Increment(bcode)
	case req.Op == "decrement":
		items, err = h.service.Decrement(bcode)
	case req.Quantity != nil:
		items, err = h.service.SetQuantity(bcode, *req.Quantity)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Either quantity or op is required",
		})
	}
	if err != nil {
		return respondError(c, "Could not update quantity", err)
	}
	return h.cartResponse(c, fiber.StatusOK, items)
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	bcode := c.Params("bcode")
	items, err := h.service.Remove(c.UserContext(), bcode)
	if err != nil {
		return respondError(c, "Could not remove item", err)
	}
	return h.cartResponse(c, fiber.StatusOK, items)
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.service.Clear(); err != nil {
		return respondError(c, "Could not clear cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) cartResponse(c *fiber.Ctx, status int, items []models.CartItem) error {
	totals, err := h.service.Totals()
	if err != nil {
		return respondError(c, "Could not compute totals", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return c.Status(status).JSON(fiber.Map{
		"items":  items,
		"totals": totals,
	})
}
