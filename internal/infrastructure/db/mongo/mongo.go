package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureIndexes creates the indexes the account system relies on. The unique
// indexes on users are what settles concurrent registrations with the same
// identity: the pre-check in the service can race, the index cannot.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	subIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "channel", Value: 1}}},
	}
	if _, err := db.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, subIndexes); err != nil {
		return fmt.Errorf("create subscription indexes: %w", err)
	}

	videoIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	}
	if _, err := db.Collection(videosCollection).Indexes().CreateMany(ctx, videoIndexes); err != nil {
		return fmt.Errorf("create video indexes: %w", err)
	}
	return nil
}
