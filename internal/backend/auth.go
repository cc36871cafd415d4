package backend

import (
	"context"
	"net/url"

	"vskmarket/internal/models"
)

// Register creates an account. The backend answers by sending an OTP.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (Result, error) {
	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("email", req.Email)
	form.Set("mobile", req.Mobile)
	form.Set("password", req.Password)
	return c.mutate(ctx, pathRegister, form)
}

// RegisterOTP confirms a registration with the OTP sent to mobile.
func (c *Client) RegisterOTP(ctx context.Context, mobile, otp string) (Result, error) {
	form := url.Values{}
	form.Set("mobile", mobile)
	form.Set("otp", otp)
	return c.mutate(ctx, pathRegisterOTP, form)
}

// Login authenticates with mobile number and password.
func (c *Client) Login(ctx context.Context, mobileNo, password string) (Result, error) {
	form := url.Values{}
	form.Set("mobile_no", mobileNo)
	form.Set("password", password)
	return c.mutate(ctx, pathLogin, form)
}

// ForgotPassword asks the backend to send a reset message.
func (c *Client) ForgotPassword(ctx context.Context, mobileNo string) (Result, error) {
	form := url.Values{}
	form.Set("mobile_no", mobileNo)
	return c.mutate(ctx, pathForgotPassword, form)
}
