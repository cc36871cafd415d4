package services

import (
	"context"
	"encoding/json"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
)

// AuthAPI is the part of the backend the auth flow needs.
type AuthAPI interface {
	Register(ctx context.Context, req models.RegisterRequest) (backend.Result, error)
	RegisterOTP(ctx context.Context, mobile, otp string) (backend.Result, error)
	Login(ctx context.Context, mobileNo, password string) (backend.Result, error)
	ForgotPassword(ctx context.Context, mobileNo string) (backend.Result, error)
}

// CartAPI mirrors local cart changes to the backend.
type CartAPI interface {
	AddToCart(ctx context.Context, guestID, userID string, item models.CartItem) (backend.Result, error)
	DeleteFromCart(ctx context.Context, guestID, cartID string) (backend.Result, error)
}

// CheckoutAPI covers the checkout and payment endpoints.
type CheckoutAPI interface {
	BillingAddress(ctx context.Context, userID string) (json.RawMessage, error)
	SaveDeliveryAddress(ctx context.Context, guestID, userID string, form models.AddressForm) (backend.Result, error)
	CartSummary(ctx context.Context, guestID, userID string) (json.RawMessage, error)
	InitiatePayment(ctx context.Context, guestID, userID string, amount int64) (backend.PaymentOrder, error)
	VerifyPayment(ctx context.Context, req backend.VerifyRequest) (backend.Result, error)
	OrderStatus(ctx context.Context, orderNo, orderID string) (backend.PaymentStatus, error)
}

// SearchAPI covers suggestions, search and the notify-me form.
type SearchAPI interface {
	AutoSuggestions(ctx context.Context, query string) (models.SuggestionResponse, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
	SubmitNotification(ctx context.Context, lead models.LeadForm) (backend.Result, error)
}

// CatalogAPI covers the read-only catalog endpoints.
type CatalogAPI interface {
	HomeFeed(ctx context.Context) (json.RawMessage, error)
	Sections(ctx context.Context) (json.RawMessage, error)
	Categories(ctx context.Context, sectionID string) (json.RawMessage, error)
	Subcategories(ctx context.Context, categoryID string) (json.RawMessage, error)
	ProductTypes(ctx context.Context, subcategoryID string) (json.RawMessage, error)
	Products(ctx context.Context, filter backend.ProductFilter) (json.RawMessage, error)
	ProductDetail(ctx context.Context, productCode string) (json.RawMessage, error)
}

// AccountAPI covers orders and wishlist.
type AccountAPI interface {
	Orders(ctx context.Context, userID string) (json.RawMessage, error)
	OrderDetail(ctx context.Context, orderNo string) (json.RawMessage, error)
	Wishlist(ctx context.Context, userID string) (json.RawMessage, error)
	AddGarmentToWishlist(ctx context.Context, item models.WishlistItem) (backend.Result, error)
	DeleteFromWishlist(ctx context.Context, id string) (backend.Result, error)
}

// ContentAPI covers static content and the feedback/subscribe forms.
type ContentAPI interface {
	Testimonials(ctx context.Context) (json.RawMessage, error)
	Banners(ctx context.Context) (json.RawMessage, error)
	Offers(ctx context.Context) (json.RawMessage, error)
	Policy(ctx context.Context, kind string) (json.RawMessage, error)
	SubmitFeedback(ctx context.Context, fb models.Feedback) (backend.Result, error)
	SubmitAppReview(ctx context.Context, review models.AppReview) (backend.Result, error)
	Subscribe(ctx context.Context, req models.SubscribeRequest) (backend.Result, error)
	VerifySubscribeOTP(ctx context.Context, req models.OTPRequest) (backend.Result, error)
}

// Publisher sends an event to the message broker.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// Cache stores catalog responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

var (
	_ AuthAPI     = (*backend.Client)(nil)
	_ CartAPI     = (*backend.Client)(nil)
	_ CheckoutAPI = (*backend.Client)(nil)
	_ SearchAPI   = (*backend.Client)(nil)
	_ CatalogAPI  = (*backend.Client)(nil)
	_ AccountAPI  = (*backend.Client)(nil)
	_ ContentAPI  = (*backend.Client)(nil)
)
