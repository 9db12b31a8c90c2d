package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

var errInvalidLimit = errors.New("limit must be a number between 1 and 100")

type OrderService interface {
	AcceptOrder(c context.Context, payload request.OrderPayload) (response.Acknowledgement, error)
	FindRecentOrders(c context.Context, param request.FindRecentOrders) ([]response.Order, error)
	Ready() bool
	BreakerState() string
}

type OrderController struct {
	service OrderService
}

func AttachOrderController(router *mux.Router, service OrderService, secret string) {
	controller := OrderController{service: service}

	router.HandleFunc("/order", controller.AcceptOrder).Methods(http.MethodPost)
	router.HandleFunc("/healthz", controller.Health).Methods(http.MethodGet)

	operator := router.PathPrefix("/orders").Subrouter()
	operator.Use(middleware.Auth(secret))
	operator.HandleFunc("", controller.FindRecentOrders).Methods(http.MethodGet)
}

func (ctrl *OrderController) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController AcceptOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderController AcceptOrder").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	payload := request.OrderPayload{}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, inHttp.MAX_BODY_BYTES)).Decode(&payload)
	if err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", errors.Join(inErrors.ErrInvalidOrderPayload, err))
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, nil, http.StatusBadRequest, response.Acknowledgement{
			Message: response.MESSAGE_INVALID_PAYLOAD,
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "accepting order").Logger()
	logger.Info().Msg("accepting order")
	c = logger.WithContext(c)
	ack, err := ctrl.service.AcceptOrder(c, payload)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		statusCode := http.StatusInternalServerError
		if errors.Is(err, inErrors.ErrInvalidOrderPayload) {
			statusCode = http.StatusBadRequest
		}
		inHttp.WriteJsonResponse(c, w, nil, statusCode, ack)
		return
	}
	logger.Info().Bool(constants.KEY_PERSISTED, ack.Persisted).Msg("accepted order")

	inHttp.WriteJsonResponse(c, w, nil, http.StatusOK, ack)
}

func (ctrl *OrderController) FindRecentOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindRecentOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderController FindRecentOrders").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing limit").Logger()
	limit := int64(defaultOrderLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > maxOrderLimit {
			err = fmt.Errorf("failed parsing limit=%s with error=%w", raw, errors.Join(errInvalidLimit, err))
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteJsonResponse(c, w, nil, http.StatusBadRequest, response.Acknowledgement{
				Message: errInvalidLimit.Error(),
			})
			return
		}
		limit = parsed
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "finding recent orders").Logger()
	logger.Info().Msg("finding recent orders")
	c = logger.WithContext(c)
	orders, err := ctrl.service.FindRecentOrders(c, request.FindRecentOrders{Limit: limit})
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		if errors.Is(err, inErrors.ErrPersistenceUnavailable) {
			inHttp.WriteJsonResponse(c, w, nil, http.StatusServiceUnavailable, response.Acknowledgement{
				Message: inErrors.ErrPersistenceUnavailable.Error(),
			})
			return
		}
		inHttp.WriteJsonResponse(c, w, nil, http.StatusInternalServerError, response.Acknowledgement{
			Message: response.MESSAGE_INTERNAL_ERROR,
		})
		return
	}
	logger.Info().Int("count", len(orders)).Msg("found recent orders")

	inHttp.WriteJsonResponse(c, w, nil, http.StatusOK, response.Orders{Success: true, Orders: orders})
}

func (ctrl *OrderController) Health(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController Health")
	defer span.End()

	health := response.Health{Database: "connected", Breaker: ctrl.service.BreakerState()}
	statusCode := http.StatusOK
	if !ctrl.service.Ready() {
		health.Database = "disconnected"
		statusCode = http.StatusServiceUnavailable
	}
	inHttp.WriteJsonResponse(c, w, nil, statusCode, health)
}
