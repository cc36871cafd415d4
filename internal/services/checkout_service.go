package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
	"vskmarket/internal/pricing"
	"vskmarket/pkg/rabbitmq"
)

// Checkout event routing keys.
const (
	EventCheckoutVerified           = "checkout.verified"
	EventCheckoutVerificationFailed = "checkout.verification_failed"
	EventCheckoutCancelled          = "checkout.cancelled"
	EventCheckoutPaymentFailed      = "checkout.payment_failed"
)

// transitions lists the allowed next states of each checkout state. The
// empty state is "no checkout yet".
var transitions = map[models.CheckoutState][]models.CheckoutState{
	"":                                {models.CheckoutSummary},
	models.CheckoutSummary:            {models.CheckoutSummary, models.CheckoutAddress},
	models.CheckoutAddress:            {models.CheckoutSummary, models.CheckoutAddress, models.CheckoutPaymentPending},
	models.CheckoutPaymentPending:     {models.CheckoutVerified, models.CheckoutVerificationFailed, models.CheckoutCancelled, models.CheckoutPaymentFailed},
	models.CheckoutCancelled:          {models.CheckoutSummary, models.CheckoutAddress, models.CheckoutPaymentPending},
	models.CheckoutPaymentFailed:      {models.CheckoutSummary, models.CheckoutAddress, models.CheckoutPaymentPending},
	models.CheckoutVerificationFailed: {models.CheckoutVerified, models.CheckoutPaymentFailed},
	models.CheckoutVerified:           {models.CheckoutSummary},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to models.CheckoutState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckoutEvent is published on every terminal payment outcome.
type CheckoutEvent struct {
	Event          string               `json:"event"`
	State          models.CheckoutState `json:"state"`
	GuestID        string               `json:"guest_id"`
	UserID         string               `json:"user_id,omitempty"`
	OrderNo        string               `json:"order_no,omitempty"`
	GatewayOrderID string               `json:"gateway_order_id,omitempty"`
	Amount         int64                `json:"amount,omitempty"`
	Error          string               `json:"error,omitempty"`
	At             time.Time            `json:"at"`
	// Attempt counts reconciliation retries of a verification_failed event.
	Attempt int `json:"attempt,omitempty"`
}

// CheckoutConfig holds the payment settings.
type CheckoutConfig struct {
	Shipping     decimal.Decimal
	KeyID        string
	MerchantName string
	Currency     string
}

// CheckoutService drives the checkout state machine:
// summary → address → payment_pending → verified | verification_failed.
// The cart is only cleared once the backend has confirmed the payment.
type CheckoutService struct {
	api       CheckoutAPI
	store     *LocalStore
	publisher Publisher
	cfg       CheckoutConfig
	validate  *validator.Validate
	mu        sync.Mutex
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(api CheckoutAPI, store *LocalStore, publisher Publisher, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &CheckoutService{
		api:       api,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Current returns the persisted checkout record.
func (s *CheckoutService) Current() (*models.Checkout, error) {
	return s.store.Checkout()
}

// Start begins (or restarts) checkout from the summary step.
func (s *CheckoutService) Start(ctx context.Context) (*models.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := s.guard(cur, models.CheckoutSummary); err != nil {
		return nil, err
	}

	items, err := s.store.Cart()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	totals, err := pricing.Totals(items, s.cfg.Shipping)
	if err != nil {
		return nil, err
	}
	guestID, err := s.store.EnsureGuestID()
	if err != nil {
		return nil, err
	}
	userID := s.store.UserID()

	rec := models.Checkout{
		State:   models.CheckoutSummary,
		GuestID: guestID,
		UserID:  userID,
		Totals:  totals,
	}
	summary, err := s.api.CartSummary(ctx, guestID, userID)
	if err != nil {
		// Client-side totals are enough to render the summary.
		log.Printf("Cart summary unavailable for guest %s: %v", guestID, err)
	} else if json.Valid(summary) {
		rec.Summary = summary
	}
	return s.save(rec)
}

// BillingAddress fetches the billing address stored for the session user.
func (s *CheckoutService) BillingAddress(ctx context.Context) (json.RawMessage, error) {
	userID := s.store.UserID()
	if userID == "" {
		return nil, ErrNoSession
	}
	return s.api.BillingAddress(ctx, userID)
}

// SubmitAddress validates and saves the shipping address.
func (s *CheckoutService) SubmitAddress(ctx context.Context, form models.AddressForm) (*models.Checkout, error) {
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}
	if !form.TermsAccepted {
		return nil, ErrTermsNotAccepted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := s.guard(cur, models.CheckoutAddress); err != nil {
		return nil, err
	}

	if _, err := s.api.SaveDeliveryAddress(ctx, cur.GuestID, cur.UserID, form); err != nil {
		return nil, fmt.Errorf("failed to save delivery address: %w", err)
	}

	rec := *cur
	rec.State = models.CheckoutAddress
	rec.Address = &form
	rec.LastError = ""
	return s.save(rec)
}

// InitiatePayment creates the gateway order for the current cart total.
func (s *CheckoutService) InitiatePayment(ctx context.Context) (*models.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := s.guard(cur, models.CheckoutPaymentPending); err != nil {
		return nil, err
	}
	if cur.Address == nil {
		return nil, fmt.Errorf("%w: address not submitted", ErrInvalidTransition)
	}

	items, err := s.store.Cart()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	totals, err := pricing.Totals(items, s.cfg.Shipping)
	if err != nil {
		return nil, err
	}
	amount := pricing.ToMinorUnits(totals.GrandTotalRounded)

	order, err := s.api.InitiatePayment(ctx, cur.GuestID, cur.UserID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	if n, ok := order.Amount.Int(); ok && n > 0 {
		amount = int64(n)
	}
	currency := order.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	rec := *cur
	rec.State = models.CheckoutPaymentPending
	rec.Totals = totals
	rec.Payment = &models.PaymentIntent{
		OrderNo:        order.OrderNo.String(),
		GatewayOrderID: order.OrderID.String(),
		Amount:         amount,
		Currency:       currency,
		KeyID:          s.cfg.KeyID,
		Lines:          paidLines(items),
	}
	rec.PaymentID = ""
	rec.Signature = ""
	rec.LastError = ""
	return s.save(rec)
}

// HandleGatewayMessage applies the outcome reported by the payment page.
// A successful payment is verified with the backend before the cart is
// cleared; if verification fails the checkout waits for Reconcile.
func (s *CheckoutService) HandleGatewayMessage(ctx context.Context, msg models.GatewayMessage) (*models.Checkout, error) {
	if err := s.validate.Struct(msg); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return nil, err
	}
	if cur.State != models.CheckoutPaymentPending || cur.Payment == nil {
		return nil, fmt.Errorf("%w: no payment pending (state %q)", ErrInvalidTransition, cur.State)
	}

	rec := *cur
	switch msg.Outcome {
	case models.GatewayCancelled:
		rec.State = models.CheckoutCancelled
		rec.LastError = "payment cancelled"
		return s.finish(rec, EventCheckoutCancelled)

	case models.GatewayFailed:
		rec.State = models.CheckoutPaymentFailed
		rec.LastError = msg.Error
		if rec.LastError == "" {
			rec.LastError = "payment failed"
		}
		return s.finish(rec, EventCheckoutPaymentFailed)
	}

	if msg.OrderID != cur.Payment.GatewayOrderID {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrOrderMismatch, msg.OrderID, cur.Payment.GatewayOrderID)
	}
	rec.PaymentID = msg.PaymentID
	rec.Signature = msg.Signature

	_, err = s.api.VerifyPayment(ctx, backend.VerifyRequest{
		OrderNo:   cur.Payment.OrderNo,
		OrderID:   msg.OrderID,
		PaymentID: msg.PaymentID,
		Signature: msg.Signature,
	})
	if err != nil {
		log.Printf("Payment %s for order %s not verified: %v", msg.PaymentID, cur.Payment.OrderNo, err)
		rec.State = models.CheckoutVerificationFailed
		rec.LastError = err.Error()
		return s.finish(rec, EventCheckoutVerificationFailed)
	}
	return s.markVerified(rec)
}

// Reconcile asks the backend whether a payment whose verification failed
// was in fact received. A paid order is verified and a failed one moves to
// payment_failed so checkout can start again. Any other status leaves the
// checkout in verification_failed.
func (s *CheckoutService) Reconcile(ctx context.Context) (*models.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current()
	if err != nil {
		return nil, err
	}
	if cur.State != models.CheckoutVerificationFailed || cur.Payment == nil {
		return nil, fmt.Errorf("%w: nothing to reconcile (state %q)", ErrInvalidTransition, cur.State)
	}

	status, err := s.api.OrderStatus(ctx, cur.Payment.OrderNo, cur.Payment.GatewayOrderID)
	if err != nil {
		return cur, fmt.Errorf("failed to fetch order status: %w", err)
	}
	rec := *cur
	switch {
	case status.Paid():
		return s.markVerified(rec)
	case status.Failed():
		rec.State = models.CheckoutPaymentFailed
		rec.LastError = fmt.Sprintf("payment status %q", status.Status)
		return s.finish(rec, EventCheckoutPaymentFailed)
	}
	rec.LastError = fmt.Sprintf("payment status %q", status.Status)
	return s.save(rec)
}

// markVerified removes the paid lines from the cart. Lines added after the
// payment was created stay in the cart.
func (s *CheckoutService) markVerified(rec models.Checkout) (*models.Checkout, error) {
	var err error
	if rec.Payment == nil || len(rec.Payment.Lines) == 0 {
		err = s.store.ClearCart()
	} else {
		err = s.store.RemovePaidLines(rec.Payment.Lines)
	}
	if err != nil {
		return nil, err
	}
	rec.State = models.CheckoutVerified
	rec.LastError = ""
	return s.finish(rec, EventCheckoutVerified)
}

func (s *CheckoutService) finish(rec models.Checkout, event string) (*models.Checkout, error) {
	saved, err := s.save(rec)
	if err != nil {
		return nil, err
	}
	s.publish(event, *saved)
	return saved, nil
}

func (s *CheckoutService) publish(event string, rec models.Checkout) {
	if s.publisher == nil {
		return
	}
	ev := CheckoutEvent{
		Event:   event,
		State:   rec.State,
		GuestID: rec.GuestID,
		UserID:  rec.UserID,
		Error:   rec.LastError,
		At:      rec.UpdatedAt,
	}
	if rec.Payment != nil {
		ev.OrderNo = rec.Payment.OrderNo
		ev.GatewayOrderID = rec.Payment.GatewayOrderID
		ev.Amount = rec.Payment.Amount
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal checkout event: %v", err)
		return
	}
	if err := s.publisher.Publish("", rabbitmq.CheckoutQueue, body); err != nil {
		log.Printf("Warning: Failed to publish %s for guest %s: %v", event, rec.GuestID, err)
	}
}

func paidLines(items []models.CartItem) []models.PaidLine {
	lines := make([]models.PaidLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, models.PaidLine{BCode: it.BCode.String(), Quantity: it.Quantity})
	}
	return lines
}

// current loads the record; a missing record is the empty state.
func (s *CheckoutService) current() (*models.Checkout, error) {
	rec, err := s.store.Checkout()
	if errors.Is(err, ErrNoCheckout) {
		return &models.Checkout{}, nil
	}
	return rec, err
}

func (s *CheckoutService) guard(cur *models.Checkout, to models.CheckoutState) error {
	if !CanTransition(cur.State, to) {
		return fmt.Errorf("%w: %q → %q", ErrInvalidTransition, cur.State, to)
	}
	return nil
}

func (s *CheckoutService) save(rec models.Checkout) (*models.Checkout, error) {
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.SaveCheckout(rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
