package backend

import (
	"context"
	"encoding/json"
	"net/url"
)

// ProductFilter selects a product listing. Empty fields are omitted.
type ProductFilter struct {
	SectionID     string `query:"section_id"`
	CategoryID    string `query:"category_id"`
	SubcategoryID string `query:"subcategory_id"`
	ProductTypeID string `query:"producttype_id"`
}

// Values encodes the filter as query parameters.
func (f ProductFilter) Values() url.Values {
	q := url.Values{}
	setIf(q, "section_id", f.SectionID)
	setIf(q, "category_id", f.CategoryID)
	setIf(q, "subcategory_id", f.SubcategoryID)
	setIf(q, "producttype_id", f.ProductTypeID)
	return q
}

// HomeFeed returns the home screen payload.
func (c *Client) HomeFeed(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, pathHomeFeed, nil)
}

// Sections returns the top-level store sections.
func (c *Client) Sections(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, pathSections, nil)
}

// Categories returns categories of a section.
func (c *Client) Categories(ctx context.Context, sectionID string) (json.RawMessage, error) {
	return c.raw(ctx, pathCategories, url.Values{"section_id": {sectionID}})
}

// Subcategories returns subcategories of a category.
func (c *Client) Subcategories(ctx context.Context, categoryID string) (json.RawMessage, error) {
	return c.raw(ctx, pathSubcategories, url.Values{"category_id": {categoryID}})
}

// ProductTypes returns product types of a subcategory.
func (c *Client) ProductTypes(ctx context.Context, subcategoryID string) (json.RawMessage, error) {
	return c.raw(ctx, pathProductTypes, url.Values{"subcategory_id": {subcategoryID}})
}

// Products returns a flat product listing.
func (c *Client) Products(ctx context.Context, filter ProductFilter) (json.RawMessage, error) {
	return c.raw(ctx, pathProducts, filter.Values())
}

// ProductDetail returns one product record.
func (c *Client) ProductDetail(ctx context.Context, productCode string) (json.RawMessage, error) {
	return c.raw(ctx, pathProductDetail, url.Values{"productcode": {productCode}})
}

// raw performs a GET and returns the body unchanged.
func (c *Client) raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
