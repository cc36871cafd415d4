package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"vskmarket/internal/backend"
	"vskmarket/internal/services"
)

// CatalogHandler serves catalog browsing.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service: service,
	}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	catalogRoutes := router.Group("/catalog")
	catalogRoutes.Get("/home", h.HandleHomeFeed)
	catalogRoutes.Get("/sections", h.HandleSections)
	catalogRoutes.Get("/sections/:id/categories", h.HandleCategories)
	catalogRoutes.Get("/categories/:id/subcategories", h.HandleSubcategories)
	catalogRoutes.Get("/subcategories/:id/product-types", h.HandleProductTypes)
	catalogRoutes.Get("/products", h.HandleProducts)
	catalogRoutes.Get("/products/:code", h.HandleProductDetail)
	catalogRoutes.Post("/refresh", h.HandleRefresh)
}

func (h *CatalogHandler) HandleHomeFeed(c *fiber.Ctx) error {
	body, err := h.service.HomeFeed(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load home feed", err)
	}
	return rawJSON(c, body)
}

func (h *CatalogHandler) HandleSections(c *fiber.Ctx) error {
	body, err := h.service.Sections(c.UserContext())
	if err != nil {
		return respondError(c, "Could not load sections", err)
	}
	return rawJSON(c, body)
}

func (h *CatalogHandler) HandleCategories(c *fiber.Ctx) error {
	body, err := h.service.Categories(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not load categories", err)
	}
	return rawJSON(c, body)
}

func (h *CatalogHandler) HandleSubcategories(c *fiber.Ctx) error {
	body, err := h.service.Subcategories(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not load subcategories", err)
	}
	return rawJSON(c, body)
}

func (h *CatalogHandler) HandleProductTypes(c *fiber.Ctx) error {
	body, err := h.service.ProductTypes(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not load product types", err)
	}
	return rawJSON(c, body)
}

// HandleProducts lists products filtered by the query string
// (section_id, category_id, subcategory_id, producttype_id).
func (h *CatalogHandler) HandleProducts(c *fiber.Ctx) error {
	var filter backend.ProductFilter
	if err := c.QueryParser(&filter); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product filter",
			"error":   err.Error(),
		})
	}
	body, err := h.service.Products(c.UserContext(), filter)
	if err != nil {
		return respondError(c, "Could not load products", err)
	}
	return rawJSON(c, body)
}

func (h *CatalogHandler) HandleProductDetail(c *fiber.Ctx) error {
	code := c.Params("code")
	body, err := h.service.ProductDetail(c.UserContext(), code)
	if err != nil {
		log.Printf("Error getting product %s: %v", code, err)
		return respondError(c, "Could not load product", err)
	}
	return rawJSON(c, body)
}

// HandleRefresh is the pull-to-refresh action: it drops cached catalog data.
func (h *CatalogHandler) HandleRefresh(c *fiber.Ctx) error {
	if err := h.service.Refresh(c.UserContext()); err != nil {
		return respondError(c, "Could not refresh catalog", err)
	}
	return c.JSON(fiber.Map{
		"message": "Catalog refreshed",
	})
}
