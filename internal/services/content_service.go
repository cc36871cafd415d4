package services

import (
	"context"
	"encoding/json"
	"fmt"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
)

var policyKinds = map[string]bool{
	"privacy":  true,
	"terms":    true,
	"refund":   true,
	"shipping": true,
	"about":    true,
}

// ContentService serves static content and the feedback, review and
// subscription forms. Policy text is passed through as HTML.
type ContentService struct {
	api   ContentAPI
	store *LocalStore
}

// NewContentService creates a new ContentService.
func NewContentService(api ContentAPI, store *LocalStore) *ContentService {
	return &ContentService{
		api:   api,
		store: store,
	}
}

func (s *ContentService) Testimonials(ctx context.Context) (json.RawMessage, error) {
	return s.api.Testimonials(ctx)
}

func (s *ContentService) Banners(ctx context.Context) (json.RawMessage, error) {
	return s.api.Banners(ctx)
}

func (s *ContentService) Offers(ctx context.Context) (json.RawMessage, error) {
	return s.api.Offers(ctx)
}

func (s *ContentService) Policy(ctx context.Context, kind string) (json.RawMessage, error) {
	if !policyKinds[kind] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, kind)
	}
	return s.api.Policy(ctx, kind)
}

func (s *ContentService) SubmitFeedback(ctx context.Context, fb models.Feedback) (backend.Result, error) {
	return s.api.SubmitFeedback(ctx, fb)
}

// SubmitAppReview attaches the session user, if any, to the review.
func (s *ContentService) SubmitAppReview(ctx context.Context, review models.AppReview) (backend.Result, error) {
	if sess, err := s.store.Session(); err == nil {
		review.UserID = sess.UserID.String()
		if review.Name == "" {
			review.Name = sess.DisplayName()
		}
	}
	return s.api.SubmitAppReview(ctx, review)
}

func (s *ContentService) Subscribe(ctx context.Context, req models.SubscribeRequest) (backend.Result, error) {
	return s.api.Subscribe(ctx, req)
}

func (s *ContentService) VerifySubscription(ctx context.Context, req models.OTPRequest) (backend.Result, error) {
	return s.api.VerifySubscribeOTP(ctx, req)
}
