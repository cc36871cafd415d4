package repositories

import "sync"

// MockKeyValueStore is an in-memory implementation of KeyValueStore.
type MockKeyValueStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMockKeyValueStore creates a new instance of MockKeyValueStore.
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{
		values: make(map[string]string),
	}
}

// Get returns the value stored under key.
func (r *MockKeyValueStore) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key.
func (r *MockKeyValueStore) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

// Delete removes key.
func (r *MockKeyValueStore) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// DeleteMany removes all keys under one lock.
func (r *MockKeyValueStore) DeleteMany(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (r *MockKeyValueStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
