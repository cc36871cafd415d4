package services_test

import (
	"encoding/json"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vskmarket/internal/models"
	"vskmarket/internal/repositories"
	"vskmarket/internal/services"
)

func item(bcode string, price string, qty int) models.CartItem {
	return models.CartItem{
		ProductCode:  models.FlexString("P-" + bcode),
		ProductName:  "Item " + bcode,
		ProductPrice: decimal.RequireFromString(price),
		MRP:          decimal.RequireFromString(price),
		Quantity:     qty,
		CGST:         "2.5%",
		SGST:         "2.5%",
		BCode:        models.FlexString(bcode),
	}
}

func TestNewGuestID(t *testing.T) {
	id := services.NewGuestID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), id)
	assert.NotEqual(t, id, services.NewGuestID())
}

func TestLocalStore_Session(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())

	_, err := store.Session()
	assert.ErrorIs(t, err, services.ErrNoSession)
	assert.Equal(t, "", store.UserID())

	require.NoError(t, store.SaveSession(models.Session{UserID: "17", FirstName: "Asha"}))
	sess, err := store.Session()
	require.NoError(t, err)
	assert.Equal(t, "17", sess.UserID.String())
	assert.Equal(t, "17", store.UserID())

	require.NoError(t, store.ClearSession())
	_, err = store.Session()
	assert.ErrorIs(t, err, services.ErrNoSession)
}

func TestLocalStore_SaveCartIdempotent(t *testing.T) {
	kv := repositories.NewMockKeyValueStore()
	store := services.NewLocalStore(kv)
	items := []models.CartItem{item("B1", "100", 2), item("B2", "40", 1)}

	require.NoError(t, store.SaveCart(items))
	first, err := kv.Get(repositories.KeyCart)
	require.NoError(t, err)

	require.NoError(t, store.SaveCart(items))
	second, err := kv.Get(repositories.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var stored []models.CartItem
	require.NoError(t, json.Unmarshal([]byte(second), &stored))
	assert.Len(t, stored, 2)
}

func TestLocalStore_EmptyCartClearsGuestID(t *testing.T) {
	kv := repositories.NewMockKeyValueStore()
	store := services.NewLocalStore(kv)

	id, err := store.EnsureGuestID()
	require.NoError(t, err)
	again, err := store.EnsureGuestID()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, store.SaveCart([]models.CartItem{item("B1", "10", 1)}))
	require.NoError(t, store.SaveCart(nil))

	guest, err := store.GuestID()
	require.NoError(t, err)
	assert.Equal(t, "", guest)
	_, err = kv.Get(repositories.KeyCart)
	assert.ErrorIs(t, err, repositories.ErrKeyNotFound)
}

func TestLocalStore_UpdateCartSerialisesWriters(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())
	require.NoError(t, store.SaveCart([]models.CartItem{item("B1", "10", 1)}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateCart(func(items []models.CartItem) ([]models.CartItem, error) {
				items[0].Quantity++
				return items, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := store.Cart()
	require.NoError(t, err)
	assert.Equal(t, 51, items[0].Quantity)
}

func TestLocalStore_Subscribe(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())
	events, unsubscribe := store.Subscribe()

	require.NoError(t, store.SaveCart([]models.CartItem{item("B1", "10", 1), item("B2", "10", 1)}))
	assert.Equal(t, models.BadgeEvent{Count: 2}, <-events)

	require.NoError(t, store.ClearCart())
	assert.Equal(t, models.BadgeEvent{Count: 0}, <-events)

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	require.NoError(t, store.SaveCart([]models.CartItem{item("B3", "10", 1)}))
}

func TestLocalStore_Checkout(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())

	_, err := store.Checkout()
	assert.ErrorIs(t, err, services.ErrNoCheckout)

	require.NoError(t, store.SaveCheckout(models.Checkout{State: models.CheckoutAddress, GuestID: "g"}))
	rec, err := store.Checkout()
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutAddress, rec.State)
}

func sessionFor(userID string) models.Session {
	return models.Session{UserID: models.FlexString(userID), FirstName: "Test", MobileNo: "9876543210"}
}

func TestLocalStore_UpdateCartWithGuest(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())

	items, guest, err := store.UpdateCartWithGuest(func(items []models.CartItem) ([]models.CartItem, error) {
		return append(items, item("B1", "100", 1)), nil
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Len(t, guest, 32)

	stored, err := store.GuestID()
	require.NoError(t, err)
	assert.Equal(t, guest, stored)

	_, guest, err = store.UpdateCartWithGuest(func([]models.CartItem) ([]models.CartItem, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, guest)
	stored, err = store.GuestID()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLocalStore_CartAlwaysHasGuestID(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _, err := store.UpdateCartWithGuest(func(items []models.CartItem) ([]models.CartItem, error) {
					return append(items, item("B1", "100", 1)), nil
				})
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := store.UpdateCart(func([]models.CartItem) ([]models.CartItem, error) {
					return nil, nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	items, err := store.Cart()
	require.NoError(t, err)
	guest, err := store.GuestID()
	require.NoError(t, err)
	if len(items) > 0 {
		assert.NotEmpty(t, guest)
	} else {
		assert.Empty(t, guest)
	}
}

func TestLocalStore_RemovePaidLines(t *testing.T) {
	store := services.NewLocalStore(repositories.NewMockKeyValueStore())
	require.NoError(t, store.SaveCart([]models.CartItem{item("B1", "100", 3), item("B2", "40", 1)}))
	_, err := store.EnsureGuestID()
	require.NoError(t, err)

	require.NoError(t, store.RemovePaidLines([]models.PaidLine{{BCode: "B1", Quantity: 2}, {BCode: "B2", Quantity: 5}}))
	items, err := store.Cart()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B1", items[0].BCode.String())
	assert.Equal(t, 1, items[0].Quantity)

	require.NoError(t, store.RemovePaidLines([]models.PaidLine{{BCode: "B1", Quantity: 1}}))
	items, err = store.Cart()
	require.NoError(t, err)
	assert.Empty(t, items)
	guest, err := store.GuestID()
	require.NoError(t, err)
	assert.Empty(t, guest)
}
