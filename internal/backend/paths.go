package backend

// Backend endpoint paths, relative to the base URL.
const (
	pathRegister       = "/register-json"
	pathRegisterOTP    = "/register-otp-json"
	pathLogin          = "/login-json"
	pathForgotPassword = "/forgot-password-json"

	pathHomeFeed      = "/home-json"
	pathSections      = "/sections-json"
	pathCategories    = "/categories-json"
	pathSubcategories = "/subcategories-json"
	pathProductTypes  = "/producttypes-json"
	pathProducts      = "/products-json"
	pathProductDetail = "/product-details-json"

	pathAddToCart           = "/add-to-cart-json"
	pathDeleteFromCart      = "/delete-from-cart-json"
	pathBillingAddress      = "/billing-address-json"
	pathSaveDeliveryAddress = "/save-delivery-address-json"
	pathCartSummary         = "/cart-summary-json"
	pathInitiatePayment     = "/initiate-payment-json"
	pathVerifyPayment       = "/verify-payment-json"
	pathOrderStatus         = "/order-status-json"

	pathAutoSuggestions    = "/auto-suggestions-json"
	pathSearch             = "/search-json"
	pathSubmitNotification = "/notify-me-json"

	pathOrders      = "/orders-json"
	pathOrderDetail = "/order-details-json"

	pathWishlist           = "/wishlist-json"
	pathAddToWishlist      = "/add-garment-wishlist-json"
	pathDeleteFromWishlist = "/delete-wishlist-json"

	pathTestimonials       = "/testimonials-json"
	pathBanners            = "/banners-json"
	pathOffers             = "/offers-json"
	pathPolicy             = "/policy-json"
	pathFeedback           = "/feedback-json"
	pathAppReview          = "/app-review-json"
	pathSubscribe          = "/subscribe-json"
	pathSubscribeVerifyOTP = "/subscribe-otp-json"
)
