package backend

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"vskmarket/internal/models"
)

func (c *Client) Testimonials(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, pathTestimonials, nil)
}

func (c *Client) Banners(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, pathBanners, nil)
}

func (c *Client) Offers(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, pathOffers, nil)
}

// Policy returns legal text (privacy, terms, refund, shipping) as HTML.
func (c *Client) Policy(ctx context.Context, kind string) (json.RawMessage, error) {
	return c.raw(ctx, pathPolicy, url.Values{"type": {kind}})
}

func (c *Client) SubmitFeedback(ctx context.Context, fb models.Feedback) (Result, error) {
	form := url.Values{}
	form.Set("name", fb.Name)
	form.Set("email", fb.Email)
	setIf(form, "mobile", fb.Mobile)
	form.Set("message", fb.Message)
	return c.mutate(ctx, pathFeedback, form)
}

func (c *Client) SubmitAppReview(ctx context.Context, review models.AppReview) (Result, error) {
	form := url.Values{}
	setIf(form, "userid", review.UserID)
	setIf(form, "name", review.Name)
	form.Set("rating", strconv.Itoa(review.Rating))
	setIf(form, "review", review.Review)
	return c.mutate(ctx, pathAppReview, form)
}

// Subscribe starts the SMS or WhatsApp opt-in and triggers an OTP.
func (c *Client) Subscribe(ctx context.Context, req models.SubscribeRequest) (Result, error) {
	form := url.Values{}
	form.Set("mobile", req.Mobile)
	form.Set("channel", req.Channel)
	return c.mutate(ctx, pathSubscribe, form)
}

// VerifySubscribeOTP completes the opt-in.
func (c *Client) VerifySubscribeOTP(ctx context.Context, req models.OTPRequest) (Result, error) {
	form := url.Values{}
	form.Set("mobile", req.Mobile)
	form.Set("otp", req.OTP)
	return c.mutate(ctx, pathSubscribeVerifyOTP, form)
}
