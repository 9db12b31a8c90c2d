package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/order/internal/controller"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/internal/repository"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/order/pkg/event"
)

func RunOrderService(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunOrderService")
	defer span.End()

	cfg := config.Get(c, constants.APP_ORDER_SERVICE)

	logger := log.Get(filepath.Join(cfg.Application.LogDir, constants.APP_ORDER_SERVICE+".log"), cfg.Application).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_ORDER_SERVICE).
		Str(constants.KEY_TAG, "main RunOrderService").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.APP_ORDER_SERVICE, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().
		Str(constants.KEY_PROCESS, "initializing order repository").
		Str(constants.KEY_DB_DRIVER, cfg.Database.Driver).
		Logger()
	logger.Info().Msg("initializing order repository")
	c = logger.WithContext(c)
	repo, closeRepo, err := newOrderRepository(c, cfg.Database)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer closeRepo()
	logger.Info().Msg("initialized order repository")

	logger = logger.With().Str(constants.KEY_PROCESS, "starting readiness monitor").Logger()
	logger.Info().Msg("starting readiness monitor")
	readiness := infra.NewReadiness(repo, cfg.Database.Driver)
	go readiness.Watch(c, cfg.Database.PingInterval)
	logger.Info().Msg("started readiness monitor")

	breaker := infra.NewBreaker("order-persistence", cfg.Breaker, logger, func(err error) bool {
		return err == nil ||
			errors.Is(err, inErrors.ErrSchemaViolation) ||
			errors.Is(err, repository.ErrDuplicateOrder) ||
			errors.Is(err, context.Canceled)
	})

	opts := []service.Option{}
	if cfg.Cache.Enabled {
		logger = logger.With().Str(constants.KEY_PROCESS, "initializing cache").Logger()
		logger.Info().Msg("initializing cache")
		cache, err := infra.NewCacheClient(c, cfg.Cache)
		if err != nil {
			logger.Warn().Err(err).Msg("order events disabled, cache is not reachable")
		} else {
			defer closeCache(logger, cache)
			opts = append(opts, service.WithPublisher(event.NewRedisPublisher(cache, constants.CHANNEL_ORDERS)))
			logger.Info().Msg("initialized cache")
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.APP_ORDER_SERVICE),
		middleware.Logging,
		middleware.RecoverPanic,
		middleware.Metrics(constants.APP_ORDER_SERVICE),
	)
	router.Handle("/metrics", promhttp.Handler())
	orderService := service.NewOrderService(repo, readiness, breaker, opts...)
	controller.AttachOrderController(router, orderService, cfg.Application.SecretKey)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHttp.WriteJsonResponse(r.Context(), w, nil, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "not found",
		})
	})
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Application.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{
			inHttp.KEY_HEADER_AUTHORIZATION,
			inHttp.KEY_HEADER_CONTENT_TYPE,
			inHttp.KEY_HEADER_REQUEST_ID,
		}),
	)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext: func(net.Listener) context.Context {
			lg := logger.With().
				Reset().
				Timestamp().
				Caller().
				Stack().
				Str(constants.KEY_APP_NAME, constants.APP_ORDER_SERVICE).
				Logger()
			return lg.WithContext(c)
		},
		Handler:      cors(router),
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("encounter error=%w while running server", err)
		}
		close(serverErr)
	}()

	select {
	case <-c.Done():
		logger.Info().Msg("received interruption signal shutting down")
	case err := <-serverErr:
		if err != nil {
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "shutting down server").Logger()
	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("shutdown server")
}

func newOrderRepository(
	c context.Context,
	cfg config.Database,
) (repository.OrderRepository, func(), error) {
	logger := zerolog.Ctx(c)

	switch cfg.Driver {
	case "postgres":
		if err := infra.MigratePostgres(c, cfg.Postgres); err != nil {
			logger.Warn().Err(err).Msg("skipping migration, postgres is not reachable yet")
		}
		pool, err := infra.NewPostgresPool(c, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresOrderRepository(pool), pool.Close, nil
	default:
		client, err := infra.NewMongoClient(c, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoOrderRepository(client, cfg.Mongo.Name, cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(c); err != nil {
			logger.Warn().Err(err).Msg("skipping index creation, mongo is not reachable yet")
		}
		return repo, func() {
			if err := client.Disconnect(context.WithoutCancel(c)); err != nil {
				logger.Error().Err(err).Msg("failed disconnecting mongo")
			}
		}, nil
	}
}

func closeCache(logger zerolog.Logger, cache *redis.Client) {
	logger.Info().Msg("closing cache")
	if err := cache.Close(); err != nil {
		err = fmt.Errorf("failed closing cache with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("closed cache")
}

// IssueOperatorToken writes a signed token for the GET /orders endpoint to out.
func IssueOperatorToken(c context.Context, out io.Writer, subject string, ttl time.Duration) error {
	cfg := config.Get(c, constants.APP_ORDER_SERVICE)
	token, err := auth.IssueToken(cfg.Application.SecretKey, subject, ttl, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
