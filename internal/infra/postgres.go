package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxUUID "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/otel"
)

func PostgresURL(cfg config.Postgres) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		int(cfg.Port),
		cfg.Name,
	)
}

func NewPostgresPool(c context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	c, span := otel.Tracer.Start(c, "infra NewPostgresPool")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewPostgresPool").
		Str(constants.KEY_DB_DRIVER, "postgres").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(PostgresURL(cfg))
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if cfg.MaxConnections > 0 {
		pgxConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		pgxConfig.MinConns = cfg.MinConnections
	}
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	pgxConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxUUID.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(constants.KEY_PROCESS, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(constants.KEY_PROCESS, "pinging postgres").Logger()
	logger.Info().Msg("pinging postgres")
	if err = pool.Ping(c); err != nil {
		err = fmt.Errorf("failed pinging postgres with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Warn().Err(err).Msg("postgres is not reachable yet, continuing in degraded mode")
		return pool, nil
	}
	logger.Info().Msg("pinged postgres")

	return pool, nil
}

// MigratePostgres applies pending up migrations. It never runs down migrations.
func MigratePostgres(c context.Context, cfg config.Postgres) error {
	c, span := otel.Tracer.Start(c, "infra MigratePostgres")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra MigratePostgres").
		Str(constants.KEY_PROCESS, "migrating postgres").
		Logger()

	logger.Info().Msg("initializing migration")
	migration, err := migrate.New(cfg.MigrationPath, PostgresURL(cfg))
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer migration.Close()
	logger.Info().Msg("initialized migration")

	logger.Info().Msg("migration up")
	err = migration.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("successed migration up")

	return nil
}
