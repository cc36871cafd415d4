package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"vskmarket/internal/models"
)

// AddToCart mirrors a cart line to the backend under the guest id.
func (c *Client) AddToCart(ctx context.Context, guestID, userID string, item models.CartItem) (Result, error) {
	form := url.Values{}
	form.Set("guest_id", guestID)
	setIf(form, "userid", userID)
	form.Set("productcode", item.ProductCode.String())
	form.Set("bcode", item.BCode.String())
	setIf(form, "prod_id", item.ProdID.String())
	form.Set("quantity", strconv.Itoa(item.Quantity))
	form.Set("productprice", item.ProductPrice.StringFixed(2))
	setIf(form, "carttype", item.CartType)
	return c.mutate(ctx, pathAddToCart, form)
}

// DeleteFromCart removes a mirrored cart line.
func (c *Client) DeleteFromCart(ctx context.Context, guestID, cartID string) (Result, error) {
	form := url.Values{}
	form.Set("guest_id", guestID)
	form.Set("cart_id", cartID)
	return c.mutate(ctx, pathDeleteFromCart, form)
}

// BillingAddress returns the billing address stored for a user.
func (c *Client) BillingAddress(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.raw(ctx, pathBillingAddress, url.Values{"userid": {userID}})
}

// SaveDeliveryAddress stores the shipping address for the guest's order.
func (c *Client) SaveDeliveryAddress(ctx context.Context, guestID, userID string, form models.AddressForm) (Result, error) {
	addr := form.ShippingAddress()
	v := url.Values{}
	v.Set("guest_id", guestID)
	setIf(v, "userid", userID)
	v.Set("name", addr.Name)
	v.Set("address1", addr.Line1)
	setIf(v, "address2", addr.Line2)
	setIf(v, "city", addr.City)
	setIf(v, "state", addr.State)
	setIf(v, "pincode", addr.Pincode)
	v.Set("mobile_no", addr.Phone)
	setIf(v, "email", addr.Email)
	if form.Delivery != nil {
		v.Set("different_delivery", "1")
	}
	if form.TermsAccepted {
		v.Set("terms", "1")
	}
	return c.mutate(ctx, pathSaveDeliveryAddress, v)
}

// CartSummary returns the backend's view of the cart for checkout.
func (c *Client) CartSummary(ctx context.Context, guestID, userID string) (json.RawMessage, error) {
	q := url.Values{"guest_id": {guestID}}
	setIf(q, "userid", userID)
	return c.raw(ctx, pathCartSummary, q)
}

// PaymentOrder is the gateway order created by the backend.
type PaymentOrder struct {
	OrderNo  models.FlexString `json:"order_no"`
	OrderID  models.FlexString `json:"order_id"`
	Amount   models.FlexString `json:"amount"`
	Currency string            `json:"currency"`
}

// InitiatePayment asks the backend to create a gateway order for amount
// (in paise).
func (c *Client) InitiatePayment(ctx context.Context, guestID, userID string, amount int64) (PaymentOrder, error) {
	form := url.Values{}
	form.Set("guest_id", guestID)
	setIf(form, "userid", userID)
	form.Set("amount", strconv.FormatInt(amount, 10))

	res, err := c.mutate(ctx, pathInitiatePayment, form)
	if err != nil {
		return PaymentOrder{}, err
	}
	var order PaymentOrder
	if err := res.Decode(&order, "data", "order"); err != nil {
		return PaymentOrder{}, fmt.Errorf("decode payment order: %w", err)
	}
	if order.OrderID.String() == "" {
		return PaymentOrder{}, &StatusError{Status: res.Status, Message: "payment order id missing from response"}
	}
	return order, nil
}

// VerifyRequest carries the gateway's success callback.
type VerifyRequest struct {
	OrderNo   string
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyPayment asks the backend to check the gateway signature.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyRequest) (Result, error) {
	form := url.Values{}
	setIf(form, "order_no", req.OrderNo)
	form.Set("order_id", req.OrderID)
	form.Set("payment_id", req.PaymentID)
	form.Set("signature", req.Signature)
	return c.mutate(ctx, pathVerifyPayment, form)
}

// PaymentStatus is the backend's view of an order's payment.
type PaymentStatus struct {
	OrderNo string `json:"order_no"`
	Status  string `json:"payment_status"`
}

// Paid reports whether the backend considers the order paid.
func (s PaymentStatus) Paid() bool {
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case "paid", "captured", "success", "completed":
		return true
	}
	return false
}

// Failed reports whether the backend considers the payment definitively
// unsuccessful, as opposed to still pending.
func (s PaymentStatus) Failed() bool {
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case "failed", "declined", "cancelled", "canceled", "rejected", "expired":
		return true
	}
	return false
}

// OrderStatus fetches the payment status of an order.
func (c *Client) OrderStatus(ctx context.Context, orderNo, orderID string) (PaymentStatus, error) {
	q := url.Values{}
	setIf(q, "order_no", orderNo)
	setIf(q, "order_id", orderID)
	body, err := c.get(ctx, pathOrderStatus, q)
	if err != nil {
		return PaymentStatus{}, err
	}
	res, err := Interpret(body)
	if err != nil {
		return PaymentStatus{}, fmt.Errorf("unexpected response from %s: %w", pathOrderStatus, err)
	}
	var st PaymentStatus
	if err := res.Decode(&st, "data", "order"); err != nil {
		return PaymentStatus{}, fmt.Errorf("decode order status: %w", err)
	}
	return st, nil
}
