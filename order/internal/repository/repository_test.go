package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	pgxUUID "github.com/vgarvardt/pgx-google-uuid/v5"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

type setupFunc func(t *testing.T, c context.Context) OrderRepository

func setupMongo(t *testing.T, c context.Context) OrderRepository {
	container, err := mongodb.Run(c, "mongo:7.0.14")
	if err != nil {
		t.Fatalf("failed running mongo container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting mongo connection string with error: %s", err)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed connecting to mongo with error: %s", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	repo := NewMongoOrderRepository(client, "storefront", "orders")
	if err = repo.EnsureIndexes(c); err != nil {
		t.Fatalf("failed creating indexes with error: %s", err)
	}
	return repo
}

func setupPostgres(t *testing.T, c context.Context) OrderRepository {
	container, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("storefront"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "migrations", "20250601090000_create_table_orders.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(c, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}
	pgConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed parsing pgconfig with error: %s", err)
	}
	pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxUUID.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	if err != nil {
		t.Fatalf("failed creating postgres pool with error: %s", err)
	}
	t.Cleanup(pool.Close)

	return NewPostgresOrderRepository(pool)
}

func newOrder(name string, createdAt time.Time) Order {
	return Order{
		CreatedAt: createdAt,
		ID:        uuid.NewString(),
		Customer:  Customer{Name: name, Phone: "9876543210", Address: "MG Road, Kochi"},
		Items: []Item{
			{Sku: "robusta", Name: "Robusta", QtyKg: 30, Price: 40, Carats: 1.5},
		},
		TotalKg:     30,
		TotalAmount: 1200,
		TotalCarats: 1.5,
	}
}

func TestOrderRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}

	tests := []struct {
		name  string
		setup setupFunc
	}{
		{name: "mongo", setup: setupMongo},
		{name: "postgres", setup: setupPostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := context.Background()
			repo := tt.setup(t, c)

			require.NoError(t, repo.Ping(c))

			base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
			first := newOrder("first", base)
			second := newOrder("second", base.Add(time.Minute))
			third := newOrder("third", base.Add(2*time.Minute))
			for _, o := range []Order{second, first, third} {
				require.NoError(t, repo.InsertOrder(c, o))
			}

			orders, err := repo.FindRecentOrders(c, 2)
			require.NoError(t, err)
			require.Len(t, orders, 2)
			assert.Equal(t, third.ID, orders[0].ID)
			assert.Equal(t, second.ID, orders[1].ID)
			assert.True(t, third.CreatedAt.Equal(orders[0].CreatedAt))
			assert.Equal(t, third.Customer, orders[0].Customer)
			assert.Equal(t, third.Items, orders[0].Items)
			assert.Equal(t, third.TotalAmount, orders[0].TotalAmount)
			assert.Equal(t, third.TotalCarats, orders[0].TotalCarats)

			err = repo.InsertOrder(c, first)
			assert.True(t, errors.Is(err, ErrDuplicateOrder), "expected duplicate error, got %v", err)

			same := newOrder("first", base)
			require.NoError(t, repo.InsertOrder(c, same))
			orders, err = repo.FindRecentOrders(c, 100)
			require.NoError(t, err)
			assert.Len(t, orders, 4)
		})
	}
}

func TestOrderValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		order       func() Order
		expectedErr error
	}{
		{
			name:  "given complete order should pass",
			order: func() Order { return newOrder("Asha", now) },
		},
		{
			name: "given blank name should violate schema",
			order: func() Order {
				o := newOrder("", now)
				return o
			},
			expectedErr: inErrors.ErrSchemaViolation,
		},
		{
			name: "given missing address should violate schema",
			order: func() Order {
				o := newOrder("Asha", now)
				o.Customer.Address = ""
				return o
			},
			expectedErr: inErrors.ErrSchemaViolation,
		},
		{
			name: "given non uuid id should violate schema",
			order: func() Order {
				o := newOrder("Asha", now)
				o.ID = "order-1"
				return o
			},
			expectedErr: inErrors.ErrSchemaViolation,
		},
		{
			name: "given no items should violate schema",
			order: func() Order {
				o := newOrder("Asha", now)
				o.Items = nil
				return o
			},
			expectedErr: inErrors.ErrSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order().Validate(context.Background())
			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestOrderResponse(t *testing.T) {
	order := newOrder("Asha", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	res := order.Response()

	assert.Equal(t, order.ID, res.ID)
	assert.Equal(t, "Asha", res.Customer.Name)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1.5, res.Items[0].Carats)
	assert.Equal(t, 1.5, res.TotalCarats)
}
