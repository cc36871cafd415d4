package repositories

import "errors"

// Keys of the on-device store.
const (
	KeySession  = "session"
	KeyCart     = "cart"
	KeyGuestID  = "guest_id"
	KeyCheckout = "checkout"
)

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore defines the interface for on-device key-value storage.
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	// DeleteMany removes all keys in a single write.
	DeleteMany(keys ...string) error
}
