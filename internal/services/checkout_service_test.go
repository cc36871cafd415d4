package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
	"vskmarket/internal/repositories"
	"vskmarket/internal/services"
)

type checkoutFixture struct {
	svc       *services.CheckoutService
	api       *MockBackend
	store     *services.LocalStore
	publisher *MockPublisher
}

func newCheckout(t *testing.T) *checkoutFixture {
	api := new(MockBackend)
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())
	pub := &MockPublisher{}
	svc := services.NewCheckoutService(api, store, pub, services.CheckoutConfig{
		Shipping:     decimal.NewFromInt(1),
		KeyID:        "rzp_test_key",
		MerchantName: "VSK Home Market",
	})
	require.NoError(t, store.SaveSession(sessionFor("42")))
	require.NoError(t, store.SaveCart([]models.CartItem{item("B1", "100", 2)}))
	return &checkoutFixture{svc: svc, api: api, store: store, publisher: pub}
}

func addressForm() models.AddressForm {
	return models.AddressForm{
		Billing: models.Address{
			Name:  "Asha Rao",
			Line1: "12 Temple Street",
			City:  "Vijayawada",
			Phone: "9876543210",
			Email: "asha@example.com",
		},
		TermsAccepted: true,
	}
}

// toPaymentPending walks the fixture to payment_pending and returns the
// gateway order id.
func (f *checkoutFixture) toPaymentPending(t *testing.T) string {
	f.api.On("CartSummary", mock.Anything, "42").Return(json.RawMessage(`{"total":"211.00"}`), nil).Once()
	_, err := f.svc.Start(context.Background())
	require.NoError(t, err)

	f.api.On("SaveDeliveryAddress", mock.Anything, "42", mock.AnythingOfType("models.AddressForm")).Return(okResult("saved"), nil).Once()
	_, err = f.svc.SubmitAddress(context.Background(), addressForm())
	require.NoError(t, err)

	order := backend.PaymentOrder{OrderNo: "VSK1001", OrderID: "order_Abc", Currency: "INR"}
	f.api.On("InitiatePayment", mock.Anything, "42", int64(21100)).Return(order, nil).Once()
	rec, err := f.svc.InitiatePayment(context.Background())
	require.NoError(t, err)
	return rec.Payment.GatewayOrderID
}

func TestCanTransition(t *testing.T) {
	assert.True(t, services.CanTransition("", models.CheckoutSummary))
	assert.True(t, services.CanTransition(models.CheckoutSummary, models.CheckoutAddress))
	assert.True(t, services.CanTransition(models.CheckoutAddress, models.CheckoutPaymentPending))
	assert.True(t, services.CanTransition(models.CheckoutPaymentPending, models.CheckoutVerified))
	assert.True(t, services.CanTransition(models.CheckoutPaymentPending, models.CheckoutVerificationFailed))
	assert.True(t, services.CanTransition(models.CheckoutVerificationFailed, models.CheckoutVerified))
	assert.True(t, services.CanTransition(models.CheckoutVerificationFailed, models.CheckoutPaymentFailed))

	assert.False(t, services.CanTransition("", models.CheckoutPaymentPending))
	assert.False(t, services.CanTransition(models.CheckoutSummary, models.CheckoutPaymentPending))
	assert.False(t, services.CanTransition(models.CheckoutPaymentPending, models.CheckoutSummary))
	assert.False(t, services.CanTransition(models.CheckoutVerificationFailed, models.CheckoutSummary))
}

func TestCheckout_StartRequiresItems(t *testing.T) {
	f := newCheckout(t)
	require.NoError(t, f.store.ClearCart())

	_, err := f.svc.Start(context.Background())
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestCheckout_StartComputesTotals(t *testing.T) {
	f := newCheckout(t)
	f.api.On("CartSummary", mock.Anything, "42").Return(nil, errors.New("timeout")).Once()

	rec, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutSummary, rec.State)
	assert.Equal(t, "210.00", rec.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "211", rec.Totals.GrandTotalRounded.String())
	assert.Len(t, rec.GuestID, 32)
	assert.Nil(t, rec.Summary)
}

func TestCheckout_AddressValidation(t *testing.T) {
	f := newCheckout(t)
	f.api.On("CartSummary", mock.Anything, "42").Return(json.RawMessage(`{}`), nil).Once()
	_, err := f.svc.Start(context.Background())
	require.NoError(t, err)

	form := addressForm()
	form.TermsAccepted = false
	_, err = f.svc.SubmitAddress(context.Background(), form)
	assert.ErrorIs(t, err, services.ErrTermsNotAccepted)

	form = addressForm()
	form.Billing.Phone = ""
	_, err = f.svc.SubmitAddress(context.Background(), form)
	assert.Error(t, err)

	form = addressForm()
	form.Delivery = &models.Address{Name: "Office"}
	_, err = f.svc.SubmitAddress(context.Background(), form)
	assert.Error(t, err)

	rec, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutSummary, rec.State)
	f.api.AssertNotCalled(t, "SaveDeliveryAddress", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_PaymentBeforeAddressRejected(t *testing.T) {
	f := newCheckout(t)
	f.api.On("CartSummary", mock.Anything, "42").Return(json.RawMessage(`{}`), nil).Once()
	_, err := f.svc.Start(context.Background())
	require.NoError(t, err)

	_, err = f.svc.InitiatePayment(context.Background())
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestCheckout_VerifiedClearsCart(t *testing.T) {
	f := newCheckout(t)
	orderID := f.toPaymentPending(t)

	rec, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPaymentPending, rec.State)
	assert.Equal(t, int64(21100), rec.Payment.Amount)
	assert.Equal(t, "rzp_test_key", rec.Payment.KeyID)

	f.api.On("VerifyPayment", backend.VerifyRequest{
		OrderNo: "VSK1001", OrderID: orderID, PaymentID: "pay_1", Signature: "sig",
	}).Return(okResult("verified"), nil).Once()

	rec, err = f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewaySuccess, PaymentID: "pay_1", OrderID: orderID, Signature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutVerified, rec.State)

	items, err := f.store.Cart()
	require.NoError(t, err)
	assert.Empty(t, items)
	guest, err := f.store.GuestID()
	require.NoError(t, err)
	assert.Empty(t, guest)

	assert.Equal(t, []string{services.EventCheckoutVerified}, f.publisher.Events())
	f.api.AssertExpectations(t)
}

func TestCheckout_VerificationFailureKeepsCart(t *testing.T) {
	f := newCheckout(t)
	orderID := f.toPaymentPending(t)

	res, verr := failResult("Signature mismatch")
	f.api.On("VerifyPayment", mock.AnythingOfType("backend.VerifyRequest")).Return(res, verr).Once()

	rec, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewaySuccess, PaymentID: "pay_1", OrderID: orderID, Signature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutVerificationFailed, rec.State)
	assert.Equal(t, "Signature mismatch", rec.LastError)

	items, err := f.store.Cart()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// A new checkout cannot start until the payment is reconciled.
	_, err = f.svc.Start(context.Background())
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	// Backend has not seen the payment yet.
	f.api.On("OrderStatus", "VSK1001", orderID).Return(backend.PaymentStatus{Status: "pending"}, nil).Once()
	rec, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutVerificationFailed, rec.State)
	items, _ = f.store.Cart()
	assert.Len(t, items, 1)

	// Backend confirms the capture.
	f.api.On("OrderStatus", "VSK1001", orderID).Return(backend.PaymentStatus{Status: "captured"}, nil).Once()
	rec, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutVerified, rec.State)
	items, _ = f.store.Cart()
	assert.Empty(t, items)

	assert.Equal(t, []string{services.EventCheckoutVerificationFailed, services.EventCheckoutVerified}, f.publisher.Events())
}

func TestCheckout_ReconcileDeclinedPaymentUnlocksCheckout(t *testing.T) {
	f := newCheckout(t)
	orderID := f.toPaymentPending(t)

	res, verr := failResult("Signature mismatch")
	f.api.On("VerifyPayment", mock.AnythingOfType("backend.VerifyRequest")).Return(res, verr).Once()
	_, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewaySuccess, PaymentID: "pay_1", OrderID: orderID, Signature: "sig",
	})
	require.NoError(t, err)

	f.api.On("OrderStatus", "VSK1001", orderID).Return(backend.PaymentStatus{Status: "failed"}, nil).Once()
	rec, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPaymentFailed, rec.State)
	assert.Equal(t, `payment status "failed"`, rec.LastError)

	items, err := f.store.Cart()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	f.api.On("CartSummary", mock.Anything, "42").Return(json.RawMessage(`{}`), nil).Once()
	rec, err = f.svc.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutSummary, rec.State)

	assert.Equal(t, []string{services.EventCheckoutVerificationFailed, services.EventCheckoutPaymentFailed}, f.publisher.Events())
}

func TestCheckout_VerifiedKeepsLinesAddedAfterPayment(t *testing.T) {
	f := newCheckout(t)
	orderID := f.toPaymentPending(t)

	rec, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, []models.PaidLine{{BCode: "B1", Quantity: 2}}, rec.Payment.Lines)

	_, err = f.store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
		items[0].Quantity++
		return append(items, item("B9", "500", 1)), nil
	})
	require.NoError(t, err)

	f.api.On("VerifyPayment", mock.AnythingOfType("backend.VerifyRequest")).Return(okResult("verified"), nil).Once()
	rec, err = f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewaySuccess, PaymentID: "pay_1", OrderID: orderID, Signature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutVerified, rec.State)

	items, err := f.store.Cart()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B1", items[0].BCode.String())
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "B9", items[1].BCode.String())
	assert.Equal(t, 1, items[1].Quantity)

	guest, err := f.store.GuestID()
	require.NoError(t, err)
	assert.NotEmpty(t, guest)
}

func TestCheckout_CancelAndRetry(t *testing.T) {
	f := newCheckout(t)
	f.toPaymentPending(t)

	rec, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{Outcome: models.GatewayCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutCancelled, rec.State)

	items, err := f.store.Cart()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	order := backend.PaymentOrder{OrderNo: "VSK1002", OrderID: "order_Def", Amount: "21100"}
	f.api.On("InitiatePayment", mock.Anything, "42", int64(21100)).Return(order, nil).Once()
	rec, err = f.svc.InitiatePayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPaymentPending, rec.State)
	assert.Equal(t, "order_Def", rec.Payment.GatewayOrderID)
	assert.Equal(t, "INR", rec.Payment.Currency)
}

func TestCheckout_PaymentFailed(t *testing.T) {
	f := newCheckout(t)
	f.toPaymentPending(t)

	rec, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewayFailed, Error: "Card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPaymentFailed, rec.State)
	assert.Equal(t, "Card declined", rec.LastError)
	assert.Equal(t, []string{services.EventCheckoutPaymentFailed}, f.publisher.Events())
}

func TestCheckout_GatewayMessageValidation(t *testing.T) {
	f := newCheckout(t)
	f.toPaymentPending(t)

	_, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{Outcome: models.GatewaySuccess})
	assert.Error(t, err)

	_, err = f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{
		Outcome: models.GatewaySuccess, PaymentID: "pay_1", OrderID: "order_Other", Signature: "sig",
	})
	assert.ErrorIs(t, err, services.ErrOrderMismatch)

	_, err = f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{Outcome: "refunded"})
	assert.Error(t, err)
	f.api.AssertNotCalled(t, "VerifyPayment", mock.Anything)
}

func TestCheckout_GatewayMessageWithoutPendingPayment(t *testing.T) {
	f := newCheckout(t)
	_, err := f.svc.HandleGatewayMessage(context.Background(), models.GatewayMessage{Outcome: models.GatewayCancelled})
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestCheckout_BillingAddressRequiresSession(t *testing.T) {
	f := newCheckout(t)
	f.api.On("BillingAddress", "42").Return(json.RawMessage(`[{"name":"Asha"}]`), nil).Once()
	body, err := f.svc.BillingAddress(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Asha"}]`, string(body))

	require.NoError(t, f.store.ClearSession())
	_, err = f.svc.BillingAddress(context.Background())
	assert.ErrorIs(t, err, services.ErrNoSession)
}

func TestCheckout_RenderPaymentPage(t *testing.T) {
	f := newCheckout(t)

	var buf bytes.Buffer
	err := f.svc.RenderPaymentPage(&buf, "http://localhost:8080/api/v1/checkout/gateway")
	assert.Error(t, err)

	f.toPaymentPending(t)
	buf.Reset()
	require.NoError(t, f.svc.RenderPaymentPage(&buf, "http://localhost:8080/api/v1/checkout/gateway"))
	page := buf.String()
	assert.Contains(t, page, `"order_Abc"`)
	assert.Contains(t, page, "21100")
	assert.Contains(t, page, `"rzp_test_key"`)
	assert.Contains(t, page, "checkout.razorpay.com")
}
