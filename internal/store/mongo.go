// Package store persists users, posts, conversations and messages in
// MongoDB. Consistency relies on the document store's own atomic update
// operators; there is no cross-document transaction discipline.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"threadline/internal/config"
	"threadline/internal/logging"
)

// Collection names.
const (
	usersCollection         = "users"
	followsCollection       = "follows"
	postsCollection         = "posts"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// Mongo wraps the driver client and the application database handle.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(pingCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logging.Info().Str("database", cfg.Database).Msg("connected to mongodb")

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Ping verifies connectivity, used by the health endpoint.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Database exposes the underlying database handle.
func (m *Mongo) Database() *mongo.Database {
	return m.db
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
