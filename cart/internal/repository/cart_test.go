package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/storage"
	"github.com/Alturino/storefront/cart/pkg/model"
	"github.com/Alturino/storefront/order/pkg/request"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, store *storage.MemoryStore)
		expected model.Cart
	}{
		{
			name:     "given nothing stored should return empty cart",
			setup:    func(t *testing.T, store *storage.MemoryStore) {},
			expected: model.Cart{},
		},
		{
			name: "given corrupt json should return empty cart",
			setup: func(t *testing.T, store *storage.MemoryStore) {
				require.NoError(t, store.Set(context.Background(), model.KEY_CART, "{not json"))
			},
			expected: model.Cart{},
		},
		{
			name: "given json null should return empty cart",
			setup: func(t *testing.T, store *storage.MemoryStore) {
				require.NoError(t, store.Set(context.Background(), model.KEY_CART, "null"))
			},
			expected: model.Cart{},
		},
		{
			name: "given stored cart should return it",
			setup: func(t *testing.T, store *storage.MemoryStore) {
				require.NoError(t, store.Set(
					context.Background(),
					model.KEY_CART,
					`{"robusta":{"sku":"robusta","name":"Robusta","img":"r.png","price":42.5,"qtyKg":3}}`,
				))
			},
			expected: model.Cart{
				"robusta": {Sku: "robusta", Name: "Robusta", Img: "r.png", Price: 42.5, QtyKg: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			tt.setup(t, store)
			repo := NewCartRepository(store, "tab-a")

			assert.Equal(t, tt.expected, repo.Load(context.Background()))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := context.Background()
	store := storage.NewMemoryStore()
	repo := NewCartRepository(store, "tab-a")

	raw := `{"nendran":{"sku":"nendran","name":"Nendran","img":"n.png","price":60,"qtyKg":2},"robusta":{"sku":"robusta","name":"Robusta <b>","img":"r.png","price":42.5,"qtyKg":30}}`
	require.NoError(t, store.Set(c, model.KEY_CART, raw))

	require.NoError(t, repo.Save(c, repo.Load(c)))

	stored, ok, err := store.Get(c, model.KEY_CART)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, raw, stored)
	assert.Equal(t, repo.Load(c), repo.Load(c))
}

func TestSaveWritesTimestampAndPublishes(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStore()
	repo := NewCartRepository(store, "tab-a")
	now := time.UnixMilli(1718000000000)
	repo.now = func() time.Time { return now }

	events, unsubscribe, err := store.Subscribe(c)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, repo.Save(c, model.Cart{"robusta": {Sku: "robusta", QtyKg: 1}}))

	stored, ok, err := store.Get(c, model.KEY_CART_UPDATED_AT)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1718000000000", stored)
	assert.Equal(t, now, repo.UpdatedAt(c))

	select {
	case event := <-events:
		assert.Equal(t, "tab-a", event.Origin)
		assert.Equal(t, model.KEY_CART, event.Key)
	case <-time.After(time.Second):
		t.Fatal("expected change event")
	}
}

func TestExternalDeletion(t *testing.T) {
	c := context.Background()
	store := storage.NewMemoryStore()
	repo := NewCartRepository(store, "tab-a")

	require.NoError(t, repo.Save(c, model.Cart{"robusta": {Sku: "robusta", QtyKg: 1}}))
	require.NoError(t, store.Delete(c, model.KEY_CART))

	assert.Equal(t, model.Cart{}, repo.Load(c))
}

func TestClear(t *testing.T) {
	c := context.Background()
	store := storage.NewMemoryStore()
	repo := NewCartRepository(store, "tab-a")

	require.NoError(t, repo.Save(c, model.Cart{"robusta": {Sku: "robusta", QtyKg: 1}}))
	require.NoError(t, repo.Clear(c))

	_, ok, err := store.Get(c, model.KEY_CART)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, repo.Load(c))
}

func TestPendingOrders(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, store *storage.MemoryStore)
		appendCount   int
		expectedCount int
	}{
		{
			name:          "given no pending orders should append first",
			setup:         func(t *testing.T, store *storage.MemoryStore) {},
			appendCount:   1,
			expectedCount: 1,
		},
		{
			name:          "given pending orders should keep appending",
			setup:         func(t *testing.T, store *storage.MemoryStore) {},
			appendCount:   3,
			expectedCount: 3,
		},
		{
			name: "given corrupt pending orders should replace them",
			setup: func(t *testing.T, store *storage.MemoryStore) {
				require.NoError(t, store.Set(context.Background(), model.KEY_PENDING_ORDERS, "oops"))
			},
			appendCount:   1,
			expectedCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := context.Background()
			store := storage.NewMemoryStore()
			tt.setup(t, store)
			repo := NewCartRepository(store, "tab-a")

			payload := request.OrderPayload{
				Customer: &request.Customer{Name: "Asha", Phone: "9876543210", Address: "Kochi"},
				Items: []request.Item{
					{Sku: "robusta", Name: "Robusta", QtyKg: request.NumberFromFloat(20), Price: request.NumberFromFloat(40)},
				},
				TotalKg:     request.NumberFromFloat(20),
				TotalAmount: request.NumberFromFloat(800),
			}
			for range tt.appendCount {
				require.NoError(t, repo.AppendPendingOrder(c, payload))
			}

			pending, err := repo.PendingOrders(c)
			require.NoError(t, err)
			require.Len(t, pending, tt.expectedCount)
			assert.Equal(t, "Asha", pending[0].Customer.Name.String())
			assert.Equal(t, "800", pending[0].TotalAmount.String())

			raw, _, err := store.Get(c, model.KEY_PENDING_ORDERS)
			require.NoError(t, err)
			decoded := []map[string]any{}
			require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
			assert.EqualValues(t, 20, decoded[0]["totalKg"])
		})
	}
}
