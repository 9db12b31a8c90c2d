package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/otel"
)

// NewMongoClient connects lazily. An unreachable server is logged and left to the readiness
// monitor, the service still starts.
func NewMongoClient(c context.Context, cfg config.Mongo) (*mongo.Client, error) {
	c, span := otel.Tracer.Start(c, "infra NewMongoClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewMongoClient").
		Str(constants.KEY_DB_DRIVER, "mongo").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "connecting to mongo").Logger()
	logger.Info().Msg("connecting to mongo")
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		err = fmt.Errorf("failed connecting to mongo with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("connected to mongo")

	logger = logger.With().Str(constants.KEY_PROCESS, "pinging mongo").Logger()
	logger.Info().Msg("pinging mongo")
	pingCtx, cancel := context.WithTimeout(c, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx, nil); err != nil {
		err = fmt.Errorf("failed pinging mongo with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Warn().Err(err).Msg("mongo is not reachable yet, continuing in degraded mode")
		return client, nil
	}
	logger.Info().Msg("pinged mongo")

	return client, nil
}
