package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/auth"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/order/internal/repository"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/order/pkg/response"
)

const testSecret = "test-secret"

type memoryRepository struct {
	mu     sync.Mutex
	orders []repository.Order
	err    error
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

func (r *memoryRepository) InsertOrder(_ context.Context, order repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, order)
	return nil
}

func (r *memoryRepository) FindRecentOrders(_ context.Context, limit int64) ([]repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders := []repository.Order{}
	for i := len(r.orders) - 1; i >= 0 && int64(len(orders)) < limit; i-- {
		orders = append(orders, r.orders[i])
	}
	return orders, nil
}

type readiness bool

func (r readiness) Ready() bool { return bool(r) }

func newRouter(repo *memoryRepository, ready bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RecoverPanic)
	AttachOrderController(router, service.NewOrderService(repo, readiness(ready), nil), testSecret)
	return router
}

const validBody = `{
	"customer": {"name": "Asha", "phone": "9876543210", "address": "MG Road, Kochi"},
	"items": [
		{"sku": "robusta", "name": "Robusta", "img": "r.png", "qtyKg": 30, "price": 40},
		{"sku": "nendran", "name": "Nendran", "img": "n.png", "qtyKg": "31", "price": "60"}
	],
	"totalKg": 61,
	"totalAmount": 2907
}`

func TestAcceptOrder(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		ready              bool
		repoErr            error
		expectedStatusCode int
		expectedAck        response.Acknowledgement
		expectedStored     int
	}{
		{
			name:               "given valid order should save it",
			body:               validBody,
			ready:              true,
			expectedStatusCode: http.StatusOK,
			expectedAck: response.Acknowledgement{
				Success:   true,
				Message:   response.MESSAGE_ORDER_SAVED,
				Persisted: true,
			},
			expectedStored: 1,
		},
		{
			name:               "given store not live should acknowledge without saving",
			body:               validBody,
			ready:              false,
			expectedStatusCode: http.StatusOK,
			expectedAck: response.Acknowledgement{
				Success: true,
				Message: response.MESSAGE_ORDER_NOT_PERSISTED,
			},
		},
		{
			name:               "given save failure should return 500",
			body:               validBody,
			ready:              true,
			repoErr:            errors.New("disk full"),
			expectedStatusCode: http.StatusInternalServerError,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_SAVE_FAILED},
		},
		{
			name:               "given empty items should return 400",
			body:               `{"customer": {"name": "Asha"}, "items": []}`,
			ready:              true,
			expectedStatusCode: http.StatusBadRequest,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_INVALID_PAYLOAD},
		},
		{
			name:               "given missing customer should return 400",
			body:               `{"items": [{"sku": "robusta"}]}`,
			ready:              false,
			expectedStatusCode: http.StatusBadRequest,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_INVALID_PAYLOAD},
		},
		{
			name:               "given malformed json should return 400",
			body:               `{"customer": `,
			ready:              true,
			expectedStatusCode: http.StatusBadRequest,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_INVALID_PAYLOAD},
		},
		{
			name:               "given items that is not an array should return 400",
			body:               `{"customer": {"name": "Asha"}, "items": "robusta"}`,
			ready:              true,
			expectedStatusCode: http.StatusBadRequest,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_INVALID_PAYLOAD},
		},
		{
			name:               "given blank customer fields should fail schema and return 500",
			body:               `{"customer": {"name": "  "}, "items": [{"sku": "robusta", "qtyKg": 1, "price": 1}]}`,
			ready:              true,
			expectedStatusCode: http.StatusInternalServerError,
			expectedAck:        response.Acknowledgement{Message: response.MESSAGE_SAVE_FAILED},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryRepository{err: tt.repoErr}
			router := newRouter(repo, tt.ready)

			req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			ack := response.Acknowledgement{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
			assert.Equal(t, tt.expectedAck, ack)
			assert.Len(t, repo.orders, tt.expectedStored)
		})
	}
}

func TestAcceptOrderRejectsOversizedBody(t *testing.T) {
	repo := &memoryRepository{}
	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.RecoverPanic)
	AttachOrderController(router, service.NewOrderService(repo, readiness(true), nil), testSecret)

	body := `{"customer":{"name":"` + strings.Repeat("a", 2*inHttp.MAX_BODY_BYTES) +
		`","phone":"1","address":"Kochi"},"items":[{"sku":"robusta","qtyKg":1,"price":1}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ack := response.Acknowledgement{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	assert.Equal(t, response.MESSAGE_INVALID_PAYLOAD, ack.Message)
	assert.Empty(t, repo.orders)
}

func TestAcceptOrderStoresServerTotals(t *testing.T) {
	repo := &memoryRepository{}
	router := newRouter(repo, true)

	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, repo.orders, 1)
	order := repo.orders[0]
	assert.Equal(t, float64(61), order.TotalKg)
	assert.Equal(t, float64(3060), order.TotalAmount)
	assert.Equal(t, 3.05, order.TotalCarats)
	assert.Equal(t, "Asha", order.Customer.Name)
}

func TestFindRecentOrders(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "operator", time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := auth.IssueToken(testSecret, "operator", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := auth.IssueToken("another-secret", "operator", time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name               string
		target             string
		authorization      string
		ready              bool
		expectedStatusCode int
		expectedCount      int
	}{
		{
			name:               "given valid token should return orders newest first",
			target:             "/orders",
			authorization:      "Bearer " + token,
			ready:              true,
			expectedStatusCode: http.StatusOK,
			expectedCount:      3,
		},
		{
			name:               "given limit should cap the result",
			target:             "/orders?limit=2",
			authorization:      "Bearer " + token,
			ready:              true,
			expectedStatusCode: http.StatusOK,
			expectedCount:      2,
		},
		{
			name:               "given invalid limit should return 400",
			target:             "/orders?limit=500",
			authorization:      "Bearer " + token,
			ready:              true,
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "given non numeric limit should return 400",
			target:             "/orders?limit=abc",
			authorization:      "Bearer " + token,
			ready:              true,
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "given store not live should return 503",
			target:             "/orders",
			authorization:      "Bearer " + token,
			ready:              false,
			expectedStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:               "given missing token should return 401",
			target:             "/orders",
			ready:              true,
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "given expired token should return 401",
			target:             "/orders",
			authorization:      "Bearer " + expired,
			ready:              true,
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "given token signed with another secret should return 401",
			target:             "/orders",
			authorization:      "Bearer " + foreign,
			ready:              true,
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryRepository{}
			base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
			for i, id := range []string{"first", "second", "third"} {
				repo.orders = append(repo.orders, repository.Order{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
			}
			router := newRouter(repo, tt.ready)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.expectedStatusCode, rec.Code)
			if tt.expectedStatusCode != http.StatusOK {
				return
			}
			res := response.Orders{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
			assert.True(t, res.Success)
			require.Len(t, res.Orders, tt.expectedCount)
			assert.Equal(t, "third", res.Orders[0].ID)
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name               string
		ready              bool
		expectedStatusCode int
		expectedDatabase   string
	}{
		{name: "given live store should be connected", ready: true, expectedStatusCode: http.StatusOK, expectedDatabase: "connected"},
		{name: "given store down should be disconnected", ready: false, expectedStatusCode: http.StatusServiceUnavailable, expectedDatabase: "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&memoryRepository{}, tt.ready)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.expectedStatusCode, rec.Code)
			health := response.Health{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
			assert.Equal(t, tt.expectedDatabase, health.Database)
			assert.Equal(t, "closed", health.Breaker)
		})
	}
}
