package models

import "time"

// KVEntry is a row of the on-device key-value store.
type KVEntry struct {
	Key       string `gorm:"primaryKey;column:kv_key;type:varchar(64)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (KVEntry) TableName() string {
	return "kv_entries"
}
