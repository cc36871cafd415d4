package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"vskmarket/internal/models"
	"vskmarket/internal/pricing"
)

// CartService handles the local cart and mirrors changes to the backend.
type CartService struct {
	api      CartAPI
	store    *LocalStore
	shipping decimal.Decimal
}

// NewCartService creates a new CartService.
func NewCartService(api CartAPI, store *LocalStore, shipping decimal.Decimal) *CartService {
	return &CartService{
		api:      api,
		store:    store,
		shipping: shipping,
	}
}

// Items returns the cart lines.
func (s *CartService) Items() ([]models.CartItem, error) {
	return s.store.Cart()
}

// Count returns the number of cart lines.
func (s *CartService) Count() (int, error) {
	items, err := s.store.Cart()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Subscribe streams the cart line count after every cart change.
func (s *CartService) Subscribe() (<-chan models.BadgeEvent, func()) {
	return s.store.Subscribe()
}

// Totals computes the displayed amounts.
func (s *CartService) Totals() (models.CartTotals, error) {
	items, err := s.store.Cart()
	if err != nil {
		return models.CartTotals{}, err
	}
	return pricing.Totals(items, s.shipping)
}

// Add puts item in the cart. A line with the same bcode has its quantity
// increased instead of being duplicated.
func (s *CartService) Add(ctx context.Context, item models.CartItem) ([]models.CartItem, error) {
	if item.BCode.String() == "" {
		return nil, fmt.Errorf("cart item %s has no bcode", item.ProductCode)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	var line models.CartItem
	items, guestID, err := s.store.UpdateCartWithGuest(func(items []models.CartItem) ([]models.CartItem, error) {
		if i := indexOf(items, item.BCode.String()); i >= 0 {
			items[i].Quantity += item.Quantity
			line = items[i]
			return items, nil
		}
		line = item
		return append(items, item), nil
	})
	if err != nil {
		return nil, err
	}

	res, err := s.api.AddToCart(ctx, guestID, s.store.UserID(), line)
	if err != nil {
		log.Printf("Failed to mirror cart line %s: %v", line.BCode, err)
		return items, nil
	}
	var ack struct {
		CartID models.FlexString `json:"cart_id"`
	}
	if err := res.Decode(&ack, "data"); err == nil && ack.CartID.String() != "" && line.CartID.String() == "" {
		items, err = s.store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
			if i := indexOf(items, line.BCode.String()); i >= 0 {
				items[i].CartID = ack.CartID
			}
			return items, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Remove deletes the line with bcode. Removing the last line clears the
// cart and the guest id.
func (s *CartService) Remove(ctx context.Context, bcode string) ([]models.CartItem, error) {
	guestID, err := s.store.GuestID()
	if err != nil {
		return nil, err
	}

	var removed models.CartItem
	items, err := s.store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
		i := indexOf(items, bcode)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, bcode)
		}
		removed = items[i]
		return append(items[:i], items[i+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	if cartID := removed.CartID.String(); cartID != "" && guestID != "" {
		if _, err := s.api.DeleteFromCart(ctx, guestID, cartID); err != nil {
			log.Printf("Failed to delete cart line %s on backend: %v", cartID, err)
		}
	}
	return items, nil
}

// SetQuantity sets the quantity of a line. Quantities below 1 become 1.
func (s *CartService) SetQuantity(bcode string, quantity int) ([]models.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}
	return s.store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
		i := indexOf(items, bcode)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, bcode)
		}
		items[i].Quantity = quantity
		return items, nil
	})
}

// Increment raises the quantity of a line by one.
func (s *CartService) Increment(bcode string) ([]models.CartItem, error) {
	return s.adjust(bcode, 1)
}

// Decrement lowers the quantity of a line by one, never below 1.
func (s *CartService) Decrement(bcode string) ([]models.CartItem, error) {
	return s.adjust(bcode, -1)
}

// Clear empties the cart.
func (s *CartService) Clear() error {
	return s.store.ClearCart()
}

func (s *CartService) adjust(bcode string, delta int) ([]models.CartItem, error) {
	return s.store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
		i := indexOf(items, bcode)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, bcode)
		}
		q := items[i].Quantity + delta
		if q < 1 {
			q = 1
		}
		items[i].Quantity = q
		return items, nil
	})
}

func indexOf(items []models.CartItem, bcode string) int {
	for i := range items {
		if items[i].BCode.String() == bcode {
			return i
		}
	}
	return -1
}
