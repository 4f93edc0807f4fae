package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PaymentsCollection  = "payments"
	SyncTasksCollection = "order_sync_tasks"
)

// Connect opens a MongoDB connection and verifies it with a ping.
func Connect(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the service relies on: the unique
// orderId index on payments (one payment per order) and the due-task index
// the sync dispatcher polls on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(PaymentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create payments orderId index: %w", err)
	}

	_, err = db.Collection(SyncTasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextAttemptAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sync task index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func Close(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
