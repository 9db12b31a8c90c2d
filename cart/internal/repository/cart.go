package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/storage"
	"github.com/Alturino/storefront/cart/pkg/model"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/pkg/request"
)

// CartRepository is the only writer of the persisted cart. Every write publishes a change event
// tagged with the repository origin.
type CartRepository struct {
	store    storage.KeyValueStore
	notifier storage.Notifier
	origin   string
	now      func() time.Time
}

func NewCartRepository(store storage.Store, origin string) *CartRepository {
	return &CartRepository{store: store, notifier: store, origin: origin, now: time.Now}
}

func (r *CartRepository) Origin() string {
	return r.origin
}

// Load never fails. Missing, unreadable or corrupt data yields an empty cart.
func (r *CartRepository) Load(c context.Context) model.Cart {
	c, span := otel.Tracer.Start(c, "CartRepository Load")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Load").
		Str(constants.KEY_CACHE_KEY, model.KEY_CART).
		Logger()

	raw, ok, err := r.store.Get(c, model.KEY_CART)
	if err != nil {
		err = fmt.Errorf("failed reading cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return model.Cart{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return model.Cart{}
	}

	cart := model.Cart{}
	if err = json.Unmarshal([]byte(raw), &cart); err != nil {
		err = fmt.Errorf("failed decoding cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return model.Cart{}
	}
	if cart == nil {
		return model.Cart{}
	}
	return cart
}

func (r *CartRepository) Save(c context.Context, cart model.Cart) error {
	c, span := otel.Tracer.Start(c, "CartRepository Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Save").
		Int(constants.KEY_CART_LINES, len(cart)).
		Logger()

	if cart == nil {
		cart = model.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		err = fmt.Errorf("failed encoding cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if err = r.store.Set(c, model.KEY_CART, string(data)); err != nil {
		err = fmt.Errorf("failed saving cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return r.touch(c, model.KEY_CART)
}

func (r *CartRepository) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartRepository Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Clear").
		Logger()

	if err := r.store.Delete(c, model.KEY_CART); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return r.touch(c, model.KEY_CART)
}

// touch writes the change timestamp and announces the change.
func (r *CartRepository) touch(c context.Context, key string) error {
	logger := zerolog.Ctx(c)

	now := r.now()
	err := r.store.Set(c, model.KEY_CART_UPDATED_AT, strconv.FormatInt(now.UnixMilli(), 10))
	if err != nil {
		err = fmt.Errorf("failed writing cart timestamp with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	err = r.notifier.Publish(c, storage.Event{At: now.UTC(), Key: key, Origin: r.origin})
	if err != nil {
		logger.Warn().Err(err).Msg("failed announcing cart change")
	}
	return nil
}

// UpdatedAt returns the last change timestamp, zero when the cart was never written.
func (r *CartRepository) UpdatedAt(c context.Context) time.Time {
	raw, ok, err := r.store.Get(c, model.KEY_CART_UPDATED_AT)
	if err != nil || !ok {
		return time.Time{}
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// AppendPendingOrder keeps an order that could not be submitted. A corrupt list is replaced.
func (r *CartRepository) AppendPendingOrder(c context.Context, payload request.OrderPayload) error {
	c, span := otel.Tracer.Start(c, "CartRepository AppendPendingOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository AppendPendingOrder").
		Str(constants.KEY_CACHE_KEY, model.KEY_PENDING_ORDERS).
		Logger()

	pending, err := r.PendingOrders(c)
	if err != nil {
		logger.Warn().Err(err).Msg("replacing unreadable pending orders")
		pending = nil
	}
	pending = append(pending, payload)

	data, err := json.Marshal(pending)
	if err != nil {
		err = fmt.Errorf("failed encoding pending orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if err = r.store.Set(c, model.KEY_PENDING_ORDERS, string(data)); err != nil {
		err = fmt.Errorf("failed saving pending orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Int("pendingOrders", len(pending)).Msg("saved pending order")
	return nil
}

func (r *CartRepository) PendingOrders(c context.Context) ([]request.OrderPayload, error) {
	raw, ok, err := r.store.Get(c, model.KEY_PENDING_ORDERS)
	if err != nil {
		return nil, fmt.Errorf("failed reading pending orders with error=%w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []request.OrderPayload{}, nil
	}
	pending := []request.OrderPayload{}
	if err = json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("failed decoding pending orders with error=%w", err)
	}
	return pending, nil
}

func (r *CartRepository) Subscribe(c context.Context) (<-chan storage.Event, func(), error) {
	return r.notifier.Subscribe(c)
}
