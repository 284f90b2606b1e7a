package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrConcurrentUpdate is returned when a version-conditioned save matched
// no document: someone else committed first and the caller must re-read.
var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the repositories rely on, notably the
// unique external payment id index that backs webhook idempotency.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.DB.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: map[string]any{"listing_id": 1, "status": 1}},
		{Keys: map[string]any{"vendor_id": 1}},
	})
	if err != nil {
		return err
	}
	unique := true
	_, err = c.DB.Collection(transactionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    map[string]any{"external_payment_id": 1},
		Options: &options.IndexOptions{Unique: &unique},
	})
	if err != nil {
		return err
	}
	_, err = c.DB.Collection(listingsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: map[string]any{"vendor_id": 1},
	})
	return err
}
