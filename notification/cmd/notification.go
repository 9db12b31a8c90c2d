package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/notification/internal/listener"
	"github.com/Alturino/storefront/order/pkg/event"
)

const resubscribeDelay = 5 * time.Second

func RunNotificationService(c context.Context) {
	cfg := config.Get(c, constants.APP_NOTIFICATION_SERVICE)

	logger := log.Get(filepath.Join(cfg.Application.LogDir, constants.APP_NOTIFICATION_SERVICE+".log"), cfg.Application).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_NOTIFICATION_SERVICE).
		Str(constants.KEY_TAG, "main RunNotificationService").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.APP_NOTIFICATION_SERVICE, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		}
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cache, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer cache.Close()
	logger.Info().Msg("initialized cache")

	orderListener := listener.NewOrderListener()
	logger = logger.With().
		Str(constants.KEY_PROCESS, "listening order events").
		Str(constants.KEY_CHANNEL, constants.CHANNEL_ORDERS).
		Logger()
	c = logger.WithContext(c)
	for {
		logger.Info().Msg("listening order events")
		err := event.Subscribe(c, cache, constants.CHANNEL_ORDERS, orderListener.Handle)
		if err == nil || errors.Is(err, context.Canceled) {
			break
		}
		logger.Error().Err(err).Msgf("subscription ended, retrying in %s", resubscribeDelay)
		select {
		case <-c.Done():
		case <-time.After(resubscribeDelay):
			continue
		}
		break
	}
	logger.Info().
		Uint64("receivedOrders", orderListener.Received()).
		Uint64("unsavedOrders", orderListener.Degraded()).
		Msg("stopped listening order events")
}
