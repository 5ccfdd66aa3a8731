package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo establishes a connection to MongoDB. Stored records untouched
// for recordTTL are expired by the server; zero keeps them forever.
func ConnectMongo(ctx context.Context, uri, dbName string, recordTTL time.Duration) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)

	// Set connection timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoDB := &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}

	if err := mongoDB.CreateIndexes(ctx, recordTTL); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

// CreateIndexes creates the TTL index that lets the server drop abandoned
// cart records. Lookups go through _id and need no other index.
func (m *MongoDB) CreateIndexes(ctx context.Context, recordTTL time.Duration) error {
	if recordTTL <= 0 {
		return nil
	}

	records := m.Database.Collection("cart_records")
	if _, err := records.Indexes().CreateOne(ctx, RecordTTLIndex(recordTTL)); err != nil {
		return fmt.Errorf("failed to create updated_at TTL index: %w", err)
	}

	return nil
}

// RecordTTLIndex expires documents recordTTL after their updated_at
func RecordTTLIndex(recordTTL time.Duration) mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().
			SetName("cart_records_updated_at_ttl").
			SetExpireAfterSeconds(int32(recordTTL / time.Second)),
	}
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
