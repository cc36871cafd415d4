package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vskmarket/internal/models"
	"vskmarket/internal/repositories"
)

// LocalStore is the single owner of the on-device session, cart, guest id
// and checkout record. Writes are serialised so two quick cart mutations
// cannot lose each other's update.
type LocalStore struct {
	kv repositories.KeyValueStore
	mu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]chan models.BadgeEvent
	nextSub int
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(kv repositories.KeyValueStore) *LocalStore {
	return &LocalStore{
		kv:   kv,
		subs: make(map[int]chan models.BadgeEvent),
	}
}

// NewGuestID returns a random 32-character hex id.
func NewGuestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Session returns the stored session or ErrNoSession.
func (s *LocalStore) Session() (*models.Session, error) {
	var sess models.Session
	if err := s.readJSON(repositories.KeySession, &sess); err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// SaveSession persists the session.
func (s *LocalStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(repositories.KeySession, sess)
}

// ClearSession removes the session. The cart is kept.
func (s *LocalStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(repositories.KeySession)
}

// UserID returns the session user id, or "" for a guest.
func (s *LocalStore) UserID() string {
	sess, err := s.Session()
	if err != nil {
		return ""
	}
	return sess.UserID.String()
}

// Cart returns the stored cart lines.
func (s *LocalStore) Cart() ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked()
}

// SaveCart replaces the cart. Saving an empty cart clears the guest id too.
func (s *LocalStore) SaveCart(items []models.CartItem) error {
	s.mu.Lock()
	err := s.saveCartLocked(items)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(len(items))
	return nil
}

// UpdateCart applies fn to the current cart and stores the result as one
// read-modify-write.
func (s *LocalStore) UpdateCart(fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	s.mu.Lock()
	updated, err := s.updateCartLocked(fn)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.publish(len(updated))
	return updated, nil
}

// UpdateCartWithGuest is UpdateCart for changes that need a guest id. The
// id is read or generated under the same lock, so a concurrent removal of
// the last line cannot leave the new cart without one.
func (s *LocalStore) UpdateCartWithGuest(fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, string, error) {
	s.mu.Lock()
	updated, err := s.updateCartLocked(fn)
	if err != nil {
		s.mu.Unlock()
		return nil, "", err
	}
	guestID := ""
	if len(updated) > 0 {
		guestID, err = s.ensureGuestIDLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, "", err
	}
	s.publish(len(updated))
	return updated, guestID, nil
}

// RemovePaidLines subtracts paid quantities from the cart. A line whose
// remaining quantity drops to zero is removed; an emptied cart also loses
// its guest id.
func (s *LocalStore) RemovePaidLines(paid []models.PaidLine) error {
	_, err := s.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
		left := make(map[string]int, len(paid))
		for _, p := range paid {
			left[p.BCode] += p.Quantity
		}
		kept := items[:0]
		for _, it := range items {
			bcode := it.BCode.String()
			if n := left[bcode]; n > 0 {
				take := n
				if take > it.Quantity {
					take = it.Quantity
				}
				it.Quantity -= take
				left[bcode] = n - take
			}
			if it.Quantity > 0 {
				kept = append(kept, it)
			}
		}
		return kept, nil
	})
	return err
}

func (s *LocalStore) updateCartLocked(fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	items, err := s.cartLocked()
	if err != nil {
		return nil, err
	}
	updated, err := fn(items)
	if err != nil {
		return nil, err
	}
	if err := s.saveCartLocked(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ClearCart removes the cart and the guest id together.
func (s *LocalStore) ClearCart() error {
	s.mu.Lock()
	err := s.kv.DeleteMany(repositories.KeyCart, repositories.KeyGuestID)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.publish(0)
	return nil
}

// GuestID returns the current guest id, or "" when there is none.
func (s *LocalStore) GuestID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guestIDLocked()
}

// EnsureGuestID returns the current guest id, generating one if needed.
func (s *LocalStore) EnsureGuestID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureGuestIDLocked()
}

func (s *LocalStore) ensureGuestIDLocked() (string, error) {
	id, err := s.guestIDLocked()
	if err != nil || id != "" {
		return id, err
	}
	id = NewGuestID()
	if err := s.kv.Set(repositories.KeyGuestID, id); err != nil {
		return "", fmt.Errorf("failed to store guest id: %w", err)
	}
	return id, nil
}

// Checkout returns the persisted checkout record or ErrNoCheckout.
func (s *LocalStore) Checkout() (*models.Checkout, error) {
	var rec models.Checkout
	if err := s.readJSON(repositories.KeyCheckout, &rec); err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return nil, ErrNoCheckout
		}
		return nil, err
	}
	return &rec, nil
}

// SaveCheckout persists the checkout record.
func (s *LocalStore) SaveCheckout(rec models.Checkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(repositories.KeyCheckout, rec)
}

// Subscribe returns a channel receiving the cart line count after every
// cart change, and a func to stop the subscription. Slow subscribers miss
// intermediate counts.
func (s *LocalStore) Subscribe() (<-chan models.BadgeEvent, func()) {
	ch := make(chan models.BadgeEvent, 4)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *LocalStore) publish(count int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ev := models.BadgeEvent{Count: count}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *LocalStore) cartLocked() ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.readJSON(repositories.KeyCart, &items); err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return []models.CartItem{}, nil
		}
		return nil, err
	}
	return items, nil
}

func (s *LocalStore) saveCartLocked(items []models.CartItem) error {
	if len(items) == 0 {
		if err := s.kv.DeleteMany(repositories.KeyCart, repositories.KeyGuestID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	}
	return s.writeJSON(repositories.KeyCart, items)
}

func (s *LocalStore) guestIDLocked() (string, error) {
	id, err := s.kv.Get(repositories.KeyGuestID)
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read guest id: %w", err)
	}
	return id, nil
}

func (s *LocalStore) readJSON(key string, v interface{}) error {
	raw, err := s.kv.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("Discarding unreadable %s entry: %v", key, err)
		return repositories.ErrKeyNotFound
	}
	return nil
}

func (s *LocalStore) writeJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
