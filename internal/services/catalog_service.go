package services

import (
	"context"
	"encoding/json"
	"log"

	"vskmarket/internal/backend"
)

const catalogCachePrefix = "catalog:"

// CatalogService serves catalog reads, optionally through a cache.
type CatalogService struct {
	api   CatalogAPI
	cache Cache
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(api CatalogAPI, cache Cache) *CatalogService {
	return &CatalogService{
		api:   api,
		cache: cache,
	}
}

func (s *CatalogService) HomeFeed(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, "home", func() (json.RawMessage, error) {
		return s.api.HomeFeed(ctx)
	})
}

func (s *CatalogService) Sections(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, "sections", func() (json.RawMessage, error) {
		return s.api.Sections(ctx)
	})
}

func (s *CatalogService) Categories(ctx context.Context, sectionID string) (json.RawMessage, error) {
	return s.cached(ctx, "categories:"+sectionID, func() (json.RawMessage, error) {
		return s.api.Categories(ctx, sectionID)
	})
}

func (s *CatalogService) Subcategories(ctx context.Context, categoryID string) (json.RawMessage, error) {
	return s.cached(ctx, "subcategories:"+categoryID, func() (json.RawMessage, error) {
		return s.api.Subcategories(ctx, categoryID)
	})
}

func (s *CatalogService) ProductTypes(ctx context.Context, subcategoryID string) (json.RawMessage, error) {
	return s.cached(ctx, "producttypes:"+subcategoryID, func() (json.RawMessage, error) {
		return s.api.ProductTypes(ctx, subcategoryID)
	})
}

func (s *CatalogService) Products(ctx context.Context, filter backend.ProductFilter) (json.RawMessage, error) {
	return s.cached(ctx, "products:"+filter.Values().Encode(), func() (json.RawMessage, error) {
		return s.api.Products(ctx, filter)
	})
}

// ProductDetail is never cached; stock changes too often.
func (s *CatalogService) ProductDetail(ctx context.Context, productCode string) (json.RawMessage, error) {
	return s.api.ProductDetail(ctx, productCode)
}

// Refresh drops every cached catalog response.
func (s *CatalogService) Refresh(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPrefix(ctx, catalogCachePrefix)
}

func (s *CatalogService) cached(ctx context.Context, key string, fetch func() (json.RawMessage, error)) (json.RawMessage, error) {
	if s.cache == nil {
		return fetch()
	}
	key = catalogCachePrefix + key

	if data, err := s.cache.Get(ctx, key); err == nil && json.Valid(data) {
		return json.RawMessage(data), nil
	}

	body, err := fetch()
	if err != nil {
		return nil, err
	}
	if json.Valid(body) {
		if err := s.cache.Set(ctx, key, body); err != nil {
			log.Printf("Failed to cache %s: %v", key, err)
		}
	}
	return body, nil
}
