package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/models"
	"vskmarket/internal/services"
)

// SearchHandler handles typeahead, search and the notify-me form.
type SearchHandler struct {
	service  *services.SearchService
	validate *validator.Validate
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(service *services.SearchService) *SearchHandler {
	return &SearchHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the search routes with the Fiber app.
func (h *SearchHandler) RegisterRoutes(router fiber.Router) {
	searchRoutes := router.Group("/search")
	searchRoutes.Get("/suggest", h.HandleSuggest)
	searchRoutes.Get("/query", h.HandleQuery)
	searchRoutes.Post("/notify", h.HandleNotify)
}

type routedSuggestion struct {
	models.Suggestion
	Route services.Route `json:"route"`
}

// HandleSuggest returns typeahead suggestions for ?q=. Requests carrying a
// client id (?client_id= or X-Client-ID) are debounced per client; a request
// replaced by a newer one from the same client gets 409.
func (h *SearchHandler) HandleSuggest(c *fiber.Ctx) error {
	q := c.Query("q")
	clientID := c.Query("client_id", c.Get("X-Client-ID"))

	var (
		items []models.Suggestion
		err   error
	)
	if clientID != "" {
		items, err = h.service.SuggestDebounced(c.UserContext(), clientID, q)
	} else {
		items, err = h.service.Suggest(c.UserContext(), q)
	}
	if err != nil {
		if errors.Is(err, services.ErrSuperseded) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Superseded by a newer query",
			})
		}
		return respondError(c, "Could not load suggestions", err)
	}

	out := make([]routedSuggestion, 0, len(items))
	for _, sg := range items {
		out = append(out, routedSuggestion{Suggestion: sg, Route: h.service.Route(sg)})
	}
	return c.JSON(fiber.Map{
		"query":   q,
		"results": out,
	})
}

// HandleQuery runs a freeform search for ?q=.
func (h *SearchHandler) HandleQuery(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter q is required",
		})
	}
	out, err := h.service.Query(c.UserContext(), q)
	if err != nil {
		return respondError(c, "Search failed", err)
	}
	return c.JSON(out)
}

// HandleNotify submits the lead-capture form for a product with no results.
func (h *SearchHandler) HandleNotify(c *fiber.Ctx) error {
	var lead models.LeadForm
	if ok, err := parseAndValidate(c, h.validate, &lead); !ok {
		return err
	}

	res, err := h.service.SubmitLead(c.UserContext(), lead)
	if err != nil {
		return respondError(c, "Could not submit request", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": res.Message,
	})
}
