package services

import (
	"context"
	"encoding/json"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
)

// AccountService serves the logged-in user's orders and wishlist.
type AccountService struct {
	api   AccountAPI
	store *LocalStore
}

// NewAccountService creates a new AccountService.
func NewAccountService(api AccountAPI, store *LocalStore) *AccountService {
	return &AccountService{
		api:   api,
		store: store,
	}
}

func (s *AccountService) Orders(ctx context.Context) (json.RawMessage, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	return s.api.Orders(ctx, userID)
}

func (s *AccountService) OrderDetail(ctx context.Context, orderNo string) (json.RawMessage, error) {
	if _, err := s.userID(); err != nil {
		return nil, err
	}
	return s.api.OrderDetail(ctx, orderNo)
}

func (s *AccountService) Wishlist(ctx context.Context) (json.RawMessage, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	return s.api.Wishlist(ctx, userID)
}

// AddToWishlist saves item for the session user.
func (s *AccountService) AddToWishlist(ctx context.Context, item models.WishlistItem) (backend.Result, error) {
	userID, err := s.userID()
	if err != nil {
		return backend.Result{}, err
	}
	item.UserID = userID
	return s.api.AddGarmentToWishlist(ctx, item)
}

func (s *AccountService) RemoveFromWishlist(ctx context.Context, id string) (backend.Result, error) {
	if _, err := s.userID(); err != nil {
		return backend.Result{}, err
	}
	return s.api.DeleteFromWishlist(ctx, id)
}

func (s *AccountService) userID() (string, error) {
	sess, err := s.store.Session()
	if err != nil {
		return "", err
	}
	return sess.UserID.String(), nil
}
