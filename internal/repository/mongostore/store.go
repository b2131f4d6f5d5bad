// Package mongostore implements the catalog and sale stores on MongoDB.
// Sales are stored as one document with their lines embedded, in position order.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maaztelecom/internal/apierror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	salesCollection    = "sales"
)

// Connect dials MongoDB with the decimal-aware registry and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(NewRegistry()))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the dashboard queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(productsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("product indexes: %w", err)
	}
	if _, err := db.Collection(salesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "invoiceStatus", Value: 1}, {Key: "notificationStatus", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("sale indexes: %w", err)
	}
	return nil
}

func wrap(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apierror.NotFound(resource)
	}
	return apierror.Persistence(op, err)
}

func window(field string, from, to time.Time) bson.M {
	r := bson.M{}
	if !from.IsZero() {
		r["$gte"] = from
	}
	if !to.IsZero() {
		r["$lt"] = to
	}
	if len(r) == 0 {
		return nil
	}
	return bson.M{field: r}
}
