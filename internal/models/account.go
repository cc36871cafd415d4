package models

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"required,numeric,min=10,max=13"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	MobileNo string `json:"mobile_no" validate:"required,numeric,min=10,max=13"`
	Password string `json:"password" validate:"required"`
}

// OTPRequest carries a one-time password for a mobile number.
type OTPRequest struct {
	Mobile string `json:"mobile" validate:"required,numeric,min=10,max=13"`
	OTP    string `json:"otp" validate:"required,numeric"`
}

// WishlistItem is a garment saved to the user's wishlist.
type WishlistItem struct {
	UserID       string `json:"userid"`
	ProductCode  string `json:"productcode" validate:"required"`
	ProductName  string `json:"productname"`
	ProductImage string `json:"productimage"`
	ProductPrice string `json:"productprice"`
	BCode        string `json:"bcode"`
	ProdID       string `json:"prod_id"`
}

// Feedback is the contact/feedback form.
type Feedback struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Mobile  string `json:"mobile" validate:"omitempty,numeric"`
	Message string `json:"message" validate:"required,max=2000"`
}

// AppReview is an in-app rating.
type AppReview struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}

// SubscribeRequest starts the SMS/WhatsApp subscription flow.
type SubscribeRequest struct {
	Mobile  string `json:"mobile" validate:"required,numeric,min=10,max=13"`
	Channel string `json:"channel" validate:"required,oneof=sms whatsapp"`
}
