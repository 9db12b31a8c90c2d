package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/internal/otel"
)

type MongoOrderRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoOrderRepository(client *mongo.Client, database string, collection string) *MongoOrderRepository {
	return &MongoOrderRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// EnsureIndexes creates the createdAt index used by FindRecentOrders.
func (r *MongoOrderRepository) EnsureIndexes(c context.Context) error {
	c, span := otel.Tracer.Start(c, "MongoOrderRepository EnsureIndexes")
	defer span.End()

	_, err := r.collection.Indexes().CreateOne(c, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_orders_created_at"),
	})
	if err != nil {
		err = fmt.Errorf("failed creating orders index with error=%w", err)
		inErrors.HandleError(err, span)
		return err
	}
	return nil
}

func (r *MongoOrderRepository) Ping(c context.Context) error {
	return r.client.Ping(c, readpref.Primary())
}

func (r *MongoOrderRepository) InsertOrder(c context.Context, order Order) error {
	c, span := otel.Tracer.Start(c, "MongoOrderRepository InsertOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "MongoOrderRepository InsertOrder").
		Str(constants.KEY_PROCESS, "inserting order").
		Logger()

	logger.Trace().Msg("inserting order")
	_, err := r.collection.InsertOne(c, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
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

func (r *MongoOrderRepository) FindRecentOrders(c context.Context, limit int64) ([]Order, error) {
	c, span := otel.Tracer.Start(c, "MongoOrderRepository FindRecentOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "MongoOrderRepository FindRecentOrders").
		Str(constants.KEY_PROCESS, "finding recent orders").
		Int64("limit", limit).
		Logger()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(c, bson.D{}, opts)
	if err != nil {
		err = fmt.Errorf("failed finding recent orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	defer cursor.Close(c)

	orders := []Order{}
	if err = cursor.All(c, &orders); err != nil {
		err = fmt.Errorf("failed decoding recent orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(orders)).Msg("found recent orders")

	return orders, nil
}
