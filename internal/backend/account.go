package backend

import (
	"context"
	"encoding/json"
	"net/url"

	"vskmarket/internal/models"
)

// Orders lists a user's orders.
func (c *Client) Orders(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.raw(ctx, pathOrders, url.Values{"userid": {userID}})
}

// OrderDetail returns one order.
func (c *Client) OrderDetail(ctx context.Context, orderNo string) (json.RawMessage, error) {
	return c.raw(ctx, pathOrderDetail, url.Values{"order_no": {orderNo}})
}

// Wishlist returns the user's wishlist.
func (c *Client) Wishlist(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.raw(ctx, pathWishlist, url.Values{"userid": {userID}})
}

// AddGarmentToWishlist saves a garment for the user.
func (c *Client) AddGarmentToWishlist(ctx context.Context, item models.WishlistItem) (Result, error) {
	form := url.Values{}
	form.Set("userid", item.UserID)
	form.Set("productcode", item.ProductCode)
	setIf(form, "productname", item.ProductName)
	setIf(form, "productimage", item.ProductImage)
	setIf(form, "productprice", item.ProductPrice)
	setIf(form, "bcode", item.BCode)
	setIf(form, "prod_id", item.ProdID)
	return c.mutate(ctx, pathAddToWishlist, form)
}

// DeleteFromWishlist removes a wishlist entry by its id.
func (c *Client) DeleteFromWishlist(ctx context.Context, id string) (Result, error) {
	form := url.Values{}
	form.Set("id", id)
	return c.mutate(ctx, pathDeleteFromWishlist, form)
}
