package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"service-finder/pkg/logger"
)

const connectAttempts = 20

// Collection names.
const (
	UsersCollection     = "users"
	ProvidersCollection = "providers"
)

// Client wraps a connected driver client and the application database.
type Client struct {
	client *mongo.Client
	DB     *mongo.Database
}

// Connect dials uri and waits for the deployment to answer a ping.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	log := logger.Component("mongo")
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	for i := 1; i <= connectAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			log.Info().Str("database", database).Msg("connected to mongo")
			return &Client{client: client, DB: client.Database(database)}, nil
		}
		log.Warn().Err(err).Int("attempt", i).Msg("waiting for mongo")
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.Background())
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	_ = client.Disconnect(context.Background())
	return nil, fmt.Errorf("mongo: failed after %d attempts: %w", connectAttempts, err)
}

// EnsureIndexes creates the unique email index on both account collections.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	email := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, name := range []string{UsersCollection, ProvidersCollection} {
		if _, err := c.DB.Collection(name).Indexes().CreateOne(ctx, email); err != nil {
			return fmt.Errorf("mongo: index %s.email: %w", name, err)
		}
	}
	category := mongo.IndexModel{Keys: bson.D{{Key: "serviceCategory", Value: 1}}}
	if _, err := c.DB.Collection(ProvidersCollection).Indexes().CreateOne(ctx, category); err != nil {
		return fmt.Errorf("mongo: index providers.serviceCategory: %w", err)
	}
	return nil
}

// Close disconnects from the deployment.
func (c *Client) Close(ctx context.Context) error { return c.client.Disconnect(ctx) }
