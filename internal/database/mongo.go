package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appconfig "github.com/GTDGit/pricewatch_api/internal/config"
)

// mongoBackoff mirrors the PostgreSQL retry policy.
func mongoBackoff() retry.Backoff {
	b := retry.NewExponential(baseDelay)
	b = retry.WithCappedDuration(maxDelay, b)
	return retry.WithMaxRetries(maxAttempts-1, b)
}

// ConnectMongo opens a MongoDB client and returns the configured database,
// retrying the initial ping while the server is still coming up.
func ConnectMongo(ctx context.Context, cfg *appconfig.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if cfg == nil {
		return nil, nil, errors.New("nil mongo config")
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(25).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create mongo client: %w", err)
	}

	attempt := 0
	err = retry.Do(ctx, mongoBackoff(), func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("mongo not ready")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to connect to mongo after %d attempts: %w", attempt, err)
	}

	return client, client.Database(cfg.Database), nil
}
