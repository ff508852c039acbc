package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-rest-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditRepository implements AuditRepository for MongoDB.
type MongoAuditRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoAuditRepository connects and returns a repository bound to one collection.
func NewMongoAuditRepository(uri, dbName, collectionName string) (*MongoAuditRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection(collectionName)

	index := mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}
	if _, err := collection.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create audit index: %w", err)
	}

	return &MongoAuditRepository{
		client:     client,
		collection: collection,
	}, nil
}

// Insert stores one entry.
func (r *MongoAuditRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	prepareAuditEntry(entry)
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List returns entries newest first with the total count.
func (r *MongoAuditRepository) List(ctx context.Context, limit, offset int) ([]model.AuditLogEntry, int64, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []model.AuditLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit logs: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	return entries, count, nil
}

// Close closes the MongoDB connection.
func (r *MongoAuditRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoAuditRepository implements AuditRepository
var _ AuditRepository = (*MongoAuditRepository)(nil)
