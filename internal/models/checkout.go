package models

import (
	"encoding/json"
	"time"
)

// CheckoutState is a step of the checkout state machine.
type CheckoutState string

const (
	CheckoutSummary            CheckoutState = "summary"
	CheckoutAddress            CheckoutState = "address"
	CheckoutPaymentPending     CheckoutState = "payment_pending"
	CheckoutVerified           CheckoutState = "verified"
	CheckoutVerificationFailed CheckoutState = "verification_failed"
	CheckoutCancelled          CheckoutState = "cancelled"
	CheckoutPaymentFailed      CheckoutState = "payment_failed"
)

// Address is a billing or delivery address.
type Address struct {
	Name    string `json:"name" validate:"required"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// AddressForm is submitted on the address step. Delivery overrides the
// billing address when present.
type AddressForm struct {
	Billing       Address  `json:"billing"`
	Delivery      *Address `json:"delivery,omitempty" validate:"omitempty"`
	TermsAccepted bool     `json:"terms_accepted"`
}

// ShippingAddress returns the address the order ships to.
func (f AddressForm) ShippingAddress() Address {
	if f.Delivery != nil {
		return *f.Delivery
	}
	return f.Billing
}

// PaymentIntent is what the gateway page needs to open checkout.
type PaymentIntent struct {
	OrderNo        string `json:"order_no"`
	GatewayOrderID string `json:"gateway_order_id"`
	// Amount is in the smallest currency unit (paise).
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
	// Lines are the cart lines the amount was computed from.
	Lines []PaidLine `json:"lines,omitempty"`
}

// PaidLine is a cart line covered by a payment.
type PaidLine struct {
	BCode    string `json:"bcode"`
	Quantity int    `json:"quantity"`
}

// GatewayOutcome is the result reported by the payment page.
type GatewayOutcome string

const (
	GatewaySuccess   GatewayOutcome = "success"
	GatewayCancelled GatewayOutcome = "cancelled"
	GatewayFailed    GatewayOutcome = "failed"
)

// GatewayMessage is posted by the payment page back to the app.
type GatewayMessage struct {
	Outcome   GatewayOutcome `json:"outcome" validate:"required,oneof=success cancelled failed"`
	PaymentID string         `json:"payment_id" validate:"required_if=Outcome success"`
	OrderID   string         `json:"order_id" validate:"required_if=Outcome success"`
	Signature string         `json:"signature" validate:"required_if=Outcome success"`
	Error     string         `json:"error,omitempty"`
}

// Checkout is the persisted checkout record.
type Checkout struct {
	State     CheckoutState   `json:"state"`
	GuestID   string          `json:"guest_id"`
	UserID    string          `json:"user_id"`
	Totals    CartTotals      `json:"totals"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	Address   *AddressForm    `json:"address,omitempty"`
	Payment   *PaymentIntent  `json:"payment,omitempty"`
	PaymentID string          `json:"payment_id,omitempty"`
	Signature string          `json:"signature,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
