package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerrors "quickbasket/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartRecordsCollection holds one document per stored key
const CartRecordsCollection = "cart_records"

// BSONObjectTooLarge, the server error code for oversized documents
const mongoCodeObjectTooLarge = 10334

type mongoRecord struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// mongodbStore implements Store using MongoDB
type mongodbStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoDB-based key-value store
func NewMongoStore(db *mongo.Database) Store {
	return &mongodbStore{
		collection: db.Collection(CartRecordsCollection),
	}
}

// Get retrieves the value stored under key
func (r *mongodbStore) Get(ctx context.Context, key string) (string, bool, error) {
	var rec mongoRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", false, nil
		}
		return "", false, mapMongoError(err)
	}

	return rec.Value, true, nil
}

// Set upserts the value stored under key
func (r *mongodbStore) Set(ctx context.Context, key, value string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return mapMongoError(err)
	}

	return nil
}

// Delete removes the document for key
func (r *mongodbStore) Delete(ctx context.Context, key string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return mapMongoError(err)
	}

	return nil
}

// Ping verifies the server is reachable
func (r *mongodbStore) Ping(ctx context.Context) error {
	if err := r.collection.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}

	return nil
}

func mapMongoError(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(mongoCodeObjectTooLarge) {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageQuotaExceeded, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %v", cerrors.ErrStorageUnavailable, err)
	}
	return err
}
