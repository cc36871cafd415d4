package repositories_test

import (
	"testing"

	"vskmarket/internal/models"
	"vskmarket/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGORMStore(t *testing.T) *repositories.GORMKeyValueStore {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.KVEntry{}))
	return repositories.NewGORMKeyValueStore(db)
}

func TestKeyValueStores(t *testing.T) {
	stores := map[string]func(t *testing.T) repositories.KeyValueStore{
		"gorm": func(t *testing.T) repositories.KeyValueStore { return newGORMStore(t) },
		"mock": func(t *testing.T) repositories.KeyValueStore { return repositories.NewMockKeyValueStore() },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			_, err := store.Get(repositories.KeyCart)
			assert.ErrorIs(t, err, repositories.ErrKeyNotFound)

			require.NoError(t, store.Set(repositories.KeyCart, `[{"bcode":"B1"}]`))
			require.NoError(t, store.Set(repositories.KeyCart, `[{"bcode":"B2"}]`))
			v, err := store.Get(repositories.KeyCart)
			require.NoError(t, err)
			assert.Equal(t, `[{"bcode":"B2"}]`, v)

			require.NoError(t, store.Set(repositories.KeyGuestID, "0123456789abcdef0123456789abcdef"))
			require.NoError(t, store.Set(repositories.KeySession, `{"userid":"1"}`))
			require.NoError(t, store.DeleteMany(repositories.KeyCart, repositories.KeyGuestID))

			_, err = store.Get(repositories.KeyCart)
			assert.ErrorIs(t, err, repositories.ErrKeyNotFound)
			_, err = store.Get(repositories.KeyGuestID)
			assert.ErrorIs(t, err, repositories.ErrKeyNotFound)
			_, err = store.Get(repositories.KeySession)
			assert.NoError(t, err)

			require.NoError(t, store.Delete(repositories.KeySession))
			require.NoError(t, store.Delete(repositories.KeySession))
		})
	}
}
