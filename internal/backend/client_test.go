package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vskmarket/internal/models"
)

type recorded struct {
	Method      string
	Path        string
	ContentType string
	Form        url.Values
	Query       url.Values
}

// fakeBackend answers every path with the configured body and records requests.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	replies  map[string]string
	status   int
}

func newFakeBackend(t *testing.T, replies map[string]string) (*fakeBackend, *Client) {
	fb := &fakeBackend{replies: replies, status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Form:        r.PostForm,
			Query:       r.URL.Query(),
		})
		status := fb.status
		fb.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(fb.replies[r.URL.Path]))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return fb, client
}

func (fb *fakeBackend) last() recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.requests[len(fb.requests)-1]
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestClient_LoginSendsFormEncodedBody(t *testing.T) {
	fb, client := newFakeBackend(t, map[string]string{
		"/login-json": `[{"status":"SUCCESS","message":"Welcome","userid":"12"}]`,
	})

	res, err := client.Login(context.Background(), "9876543210", "secret")
	require.NoError(t, err)
	assert.True(t, res.OK)

	req := fb.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/login-json", req.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
	assert.Equal(t, "9876543210", req.Form.Get("mobile_no"))
	assert.Equal(t, "secret", req.Form.Get("password"))
}

func TestClient_BusinessFailureIsStatusError(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{
		"/login-json": `{"status":"FAILURE","message":"Invalid credentials"}`,
	})

	res, err := client.Login(context.Background(), "9876543210", "bad")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.False(t, res.OK)
	assert.Equal(t, "Invalid credentials", se.Message)
}

func TestClient_HTTPErrorPropagates(t *testing.T) {
	fb, client := newFakeBackend(t, map[string]string{"/sections-json": "boom"})
	fb.mu.Lock()
	fb.status = http.StatusBadGateway
	fb.mu.Unlock()

	_, err := client.Sections(context.Background())
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadGateway, he.StatusCode)
	assert.Equal(t, "boom", he.Body)
}

func TestClient_ProductsQuery(t *testing.T) {
	fb, client := newFakeBackend(t, map[string]string{
		"/products-json": `[{"productcode":"P1"}]`,
	})

	body, err := client.Products(context.Background(), ProductFilter{CategoryID: "3", ProductTypeID: "9"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productcode":"P1"}]`, string(body))

	req := fb.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "3", req.Query.Get("category_id"))
	assert.Equal(t, "9", req.Query.Get("producttype_id"))
	assert.False(t, req.Query.Has("section_id"))
}

func TestClient_AddToCartKeys(t *testing.T) {
	fb, client := newFakeBackend(t, map[string]string{
		"/add-to-cart-json": `{"status":true}`,
	})

	item := models.CartItem{
		ProductCode:  "MANGO-500",
		BCode:        "B-17",
		ProdID:       "17",
		Quantity:     2,
		ProductPrice: decimal.RequireFromString("120"),
		CartType:     "pickle",
	}
	_, err := client.AddToCart(context.Background(), "abc123", "", item)
	require.NoError(t, err)

	form := fb.last().Form
	assert.Equal(t, "abc123", form.Get("guest_id"))
	assert.Equal(t, "MANGO-500", form.Get("productcode"))
	assert.Equal(t, "B-17", form.Get("bcode"))
	assert.Equal(t, "2", form.Get("quantity"))
	assert.Equal(t, "120.00", form.Get("productprice"))
	assert.False(t, form.Has("userid"))
}

func TestClient_InitiatePayment(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{
		"/initiate-payment-json": `{"status":"SUCCESS","data":{"order_no":"VSK1001","order_id":"order_Abc","amount":20600,"currency":"INR"}}`,
	})

	order, err := client.InitiatePayment(context.Background(), "g1", "u1", 20600)
	require.NoError(t, err)
	assert.Equal(t, "VSK1001", order.OrderNo.String())
	assert.Equal(t, "order_Abc", order.OrderID.String())
	amount, ok := order.Amount.Int()
	assert.True(t, ok)
	assert.Equal(t, 20600, amount)
}

func TestClient_InitiatePaymentWithoutOrderID(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{
		"/initiate-payment-json": `{"status":"SUCCESS","data":{"order_no":"VSK1001"}}`,
	})

	_, err := client.InitiatePayment(context.Background(), "g1", "u1", 100)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestClient_OrderStatus(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{
		"/order-status-json": `{"status":"SUCCESS","data":{"order_no":"VSK1001","payment_status":"Paid"}}`,
	})

	st, err := client.OrderStatus(context.Background(), "VSK1001", "")
	require.NoError(t, err)
	assert.True(t, st.Paid())
	assert.False(t, st.Failed())
}

func TestPaymentStatus_Classification(t *testing.T) {
	for _, status := range []string{"failed", " Declined ", "cancelled", "EXPIRED"} {
		st := PaymentStatus{Status: status}
		assert.True(t, st.Failed(), status)
		assert.False(t, st.Paid(), status)
	}
	for _, status := range []string{"pending", "created", ""} {
		st := PaymentStatus{Status: status}
		assert.False(t, st.Failed(), status)
		assert.False(t, st.Paid(), status)
	}
}

func TestClient_AutoSuggestions(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{
		"/auto-suggestions-json": `{"status":"success","results":[{"type":"product","label":"Mango pickle","count":"0"},{"type":"category","label":"Pickles","count":12}]}`,
	})

	out, err := client.AutoSuggestions(context.Background(), "ma")
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	n, _ := out.Results[0].Count.Int()
	assert.Equal(t, 0, n)
	n, _ = out.Results[1].Count.Int()
	assert.Equal(t, 12, n)
}

func TestClient_ContextCancelled(t *testing.T) {
	_, client := newFakeBackend(t, map[string]string{"/banners-json": `[]`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Banners(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
