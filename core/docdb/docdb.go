package docdb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client owns the MongoDB connection that backs the workspace metadata store.
type Client struct {
	client     *mongo.Client
	database   string
	collection string
}

type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	// In v2, Connect handles both creation and connection
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Client{
		client:     client,
		database:   cfg.Database,
		collection: cfg.Collection,
	}, nil
}

// Workspaces returns the collection holding one document per workspace.
func (c *Client) Workspaces() *mongo.Collection {
	return c.client.Database(c.database).Collection(c.collection)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
