package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI      string
	Database string
}

func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:      "mongodb://localhost:27017",
		Database: "bariqe",
	}
}

// MongoConnection wraps a connected client and the application database.
type MongoConnection struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoConnection connects, pings and ensures the record indexes exist.
func NewMongoConnection(ctx context.Context, config MongoConfig) (*MongoConnection, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	conn := &MongoConnection{Client: client, Database: client.Database(config.Database)}
	if err := conn.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return conn, nil
}

// RecordsCollection is the single collection holding every tenant's records.
func (c *MongoConnection) RecordsCollection() *mongo.Collection {
	return c.Database.Collection("records")
}

// recordIndexes scopes text search to record data, leaving out the tenant,
// collection and correlation columns.
func recordIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "collection", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "correlationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "data.$**", Value: "text"}},
			Options: options.Index().SetName("data_text").SetDefaultLanguage("none"),
		},
	}
}

func (c *MongoConnection) EnsureIndexes(ctx context.Context) error {
	if _, err := c.RecordsCollection().Indexes().CreateMany(ctx, recordIndexes()); err != nil {
		return fmt.Errorf("failed to create mongo indexes: %w", err)
	}
	return nil
}

func (c *MongoConnection) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
