package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/internal/otel"
)

const (
	insertOrder = `INSERT INTO orders (id, customer, items, total_kg, total_amount, total_carats, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	findRecentOrders = `SELECT id, customer, items, total_kg, total_amount, total_carats, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1`

	uniqueViolation = "23505"
)

type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

func (r *PostgresOrderRepository) Ping(c context.Context) error {
	return r.pool.Ping(c)
}

func (r *PostgresOrderRepository) InsertOrder(c context.Context, order Order) error {
	c, span := otel.Tracer.Start(c, "PostgresOrderRepository InsertOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "PostgresOrderRepository InsertOrder").
		Str(constants.KEY_PROCESS, "inserting order").
		Logger()

	id, err := uuid.Parse(order.ID)
	if err != nil {
		err = fmt.Errorf("failed parsing order id with error=%w", errors.Join(err, inErrors.ErrSchemaViolation))
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("inserting order")
	_, err = r.pool.Exec(
		c,
		insertOrder,
		id,
		order.Customer,
		order.Items,
		order.TotalKg,
		order.TotalAmount,
		order.TotalCarats,
		order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = fmt.Errorf("%w: %w", ErrDuplicateOrder, err)
		}
		err = fmt.Errorf("failed inserting order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("inserted order")

	return nil
}

func (r *PostgresOrderRepository) FindRecentOrders(c context.Context, limit int64) ([]Order, error) {
	c, span := otel.Tracer.Start(c, "PostgresOrderRepository FindRecentOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "PostgresOrderRepository FindRecentOrders").
		Str(constants.KEY_PROCESS, "finding recent orders").
		Int64("limit", limit).
		Logger()

	rows, err := r.pool.Query(c, findRecentOrders, limit)
	if err != nil {
		err = fmt.Errorf("failed finding recent orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var (
			id    uuid.UUID
			order Order
		)
		err := row.Scan(
			&id,
			&order.Customer,
			&order.Items,
			&order.TotalKg,
			&order.TotalAmount,
			&order.TotalCarats,
			&order.CreatedAt,
		)
		order.ID = id.String()
		return order, err
	})
	if err != nil {
		err = fmt.Errorf("failed scanning recent orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(orders)).Msg("found recent orders")

	return orders, nil
}
