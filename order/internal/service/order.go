package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/internal/repository"
	"github.com/Alturino/storefront/order/pkg/event"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

type Readiness interface {
	Ready() bool
}

type OrderService struct {
	repository repository.OrderRepository
	readiness  Readiness
	breaker    *gobreaker.CircuitBreaker
	publisher  event.Publisher
	validate   *validator.Validate
	now        func() time.Time
}

type Option func(*OrderService)

func WithPublisher(publisher event.Publisher) Option {
	return func(s *OrderService) { s.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	repository repository.OrderRepository,
	readiness Readiness,
	breaker *gobreaker.CircuitBreaker,
	opts ...Option,
) *OrderService {
	s := &OrderService{
		repository: repository,
		readiness:  readiness,
		breaker:    breaker,
		validate:   validator.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether an order accepted now would be written to the store.
func (s *OrderService) Ready() bool {
	if !s.readiness.Ready() {
		return false
	}
	return s.breaker == nil || s.breaker.State() != gobreaker.StateOpen
}

func (s *OrderService) BreakerState() string {
	if s.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return s.breaker.State().String()
}

// AcceptOrder validates, normalizes and stores an order. It returns ErrInvalidOrderPayload for
// structural failures and a wrapped persistence error when the store rejects the write. When the
// store is not live the order is acknowledged with Persisted set to false.
func (s *OrderService) AcceptOrder(
	c context.Context,
	payload request.OrderPayload,
) (response.Acknowledgement, error) {
	c, span := otel.Tracer.Start(c, "OrderService AcceptOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderService AcceptOrder").
		Object(constants.KEY_ORDER, payload).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating order payload").Logger()
	logger.Info().Msg("validating order payload")
	if err := s.validate.StructCtx(c, payload); err != nil {
		err = fmt.Errorf("failed validating order payload with error=%w", errors.Join(inErrors.ErrInvalidOrderPayload, err))
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_INVALID).Inc()
		return response.Acknowledgement{Message: response.MESSAGE_INVALID_PAYLOAD}, err
	}
	logger.Info().Msg("validated order payload")

	logger = logger.With().Str(constants.KEY_PROCESS, "normalizing order").Logger()
	logger.Info().Msg("normalizing order")
	order := NormalizeOrder(payload, s.now())
	logger = logger.With().
		Float64(constants.KEY_TOTAL_KG, order.TotalKg).
		Float64(constants.KEY_TOTAL_AMOUNT, order.TotalAmount).
		Float64(constants.KEY_TOTAL_CARATS, order.TotalCarats).
		Logger()
	logger.Info().Msg("normalized order")

	if !s.Ready() {
		logger.Warn().
			Str(constants.KEY_PROCESS, "acknowledging order").
			Msg("persistence layer is not live, order acknowledged without saving")
		metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_DEGRADED).Inc()
		s.publish(c, order, false)
		return response.Acknowledgement{
			Success:   true,
			Message:   response.MESSAGE_ORDER_NOT_PERSISTED,
			Persisted: false,
		}, nil
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "validating persisted order").Logger()
	logger.Info().Msg("validating persisted order")
	if err := order.Validate(c); err != nil {
		err = fmt.Errorf("failed validating persisted order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_FAILED).Inc()
		return response.Acknowledgement{Message: response.MESSAGE_SAVE_FAILED}, err
	}
	logger.Info().Msg("validated persisted order")

	logger = logger.With().Str(constants.KEY_PROCESS, "saving order").Logger()
	logger.Info().Msg("saving order")
	c = logger.WithContext(c)
	err := s.insert(c, order)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.Warn().Err(err).Msg("circuit breaker rejected save, order acknowledged without saving")
		metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_DEGRADED).Inc()
		s.publish(c, order, false)
		return response.Acknowledgement{
			Success:   true,
			Message:   response.MESSAGE_ORDER_NOT_PERSISTED,
			Persisted: false,
		}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed saving order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_FAILED).Inc()
		return response.Acknowledgement{Message: response.MESSAGE_SAVE_FAILED}, err
	}
	logger.Info().Msg("saved order")

	metrics.OrdersTotal.WithLabelValues(metrics.ORDER_RESULT_SAVED).Inc()
	s.publish(c, order, true)

	return response.Acknowledgement{
		Success:   true,
		Message:   response.MESSAGE_ORDER_SAVED,
		Persisted: true,
	}, nil
}

func (s *OrderService) insert(c context.Context, order repository.Order) error {
	if s.breaker == nil {
		return s.repository.InsertOrder(c, order)
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.repository.InsertOrder(c, order)
	})
	return err
}

func (s *OrderService) publish(c context.Context, order repository.Order, persisted bool) {
	if s.publisher == nil {
		return
	}

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_PROCESS, "publishing order event").
		Str(constants.KEY_CHANNEL, constants.CHANNEL_ORDERS).
		Logger()

	accepted := event.OrderAccepted{
		At:          order.CreatedAt,
		RequestID:   log.RequestIDFromContext(c),
		ItemCount:   len(order.Items),
		TotalKg:     order.TotalKg,
		TotalAmount: order.TotalAmount,
		TotalCarats: order.TotalCarats,
		Persisted:   persisted,
	}
	if err := s.publisher.Publish(c, accepted); err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Trace().Msg("published order event")
}

func (s *OrderService) FindRecentOrders(
	c context.Context,
	param request.FindRecentOrders,
) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindRecentOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderService FindRecentOrders").
		Str(constants.KEY_PROCESS, "finding recent orders").
		Int64("limit", param.Limit).
		Logger()

	if err := s.validate.StructCtx(c, param); err != nil {
		err = fmt.Errorf("failed validating limit with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	if !s.readiness.Ready() {
		err := fmt.Errorf("failed finding recent orders with error=%w", inErrors.ErrPersistenceUnavailable)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	logger.Info().Msg("finding recent orders")
	c = logger.WithContext(c)
	orders, err := s.repository.FindRecentOrders(c, param.Limit)
	if err != nil {
		err = fmt.Errorf("failed finding recent orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("count", len(orders)).Msg("found recent orders")

	res := make([]response.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, o.Response())
	}
	return res, nil
}
