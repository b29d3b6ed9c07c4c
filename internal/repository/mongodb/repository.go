package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// Collection names stay compatible with existing data.
const (
	customersColl = "customers"
	productsColl  = "products"
	ordersColl    = "orders"
	linesColl     = "orderdetails"
	movementsColl = "stockmovements"
	paymentsColl  = "payments"
	usersColl     = "users"
	reportsColl   = "daily_reports"
)

var (
	_ repository.Store         = (*MongoDBRepository)(nil)
	_ repository.CustomerStore = (*MongoDBRepository)(nil)
	_ repository.UserStore     = (*MongoDBRepository)(nil)
	_ repository.ReportStore   = (*MongoDBRepository)(nil)
)

// MongoDBRepository implements the repository contracts on a MongoDB replica set.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and ensures the unique indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		productsColl: {{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique}},
		ordersColl: {
			{Keys: bson.D{{Key: "orderCode", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "date", Value: -1}}},
		},
		linesColl:     {{Keys: bson.D{{Key: "orderId", Value: 1}}}, {Keys: bson.D{{Key: "productCode", Value: 1}}}},
		movementsColl: {{Keys: bson.D{{Key: "productCode", Value: 1}, {Key: "date", Value: 1}}}},
		paymentsColl: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "type", Value: 1}}},
		},
		usersColl: {{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// SaveDailyReport saves a daily report to the database.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.db.Collection(reportsColl).InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
