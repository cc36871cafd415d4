package repositories

import (
	"errors"
	"fmt"
	"time"

	"vskmarket/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMKeyValueStore is a GORM implementation of KeyValueStore.
type GORMKeyValueStore struct {
	db *gorm.DB
}

// NewGORMKeyValueStore creates a new instance of GORMKeyValueStore.
func NewGORMKeyValueStore(db *gorm.DB) *GORMKeyValueStore {
	return &GORMKeyValueStore{
		db: db,
	}
}

// Get returns the value stored under key.
func (r *GORMKeyValueStore) Get(key string) (string, error) {
	var entry models.KVEntry
	if err := r.db.First(&entry, "kv_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set inserts or replaces the value stored under key.
func (r *GORMKeyValueStore) Set(key, value string) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *GORMKeyValueStore) Delete(key string) error {
	if err := r.db.Delete(&models.KVEntry{}, "kv_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes keys inside one transaction.
func (r *GORMKeyValueStore) DeleteMany(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.KVEntry{}, "kv_key IN ?", keys).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete keys %v: %w", keys, err)
	}
	return nil
}
