// Package bootstrap opens the persistence backend selected by configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/config"
	"github.com/GTDGit/pricewatch_api/internal/database"
	"github.com/GTDGit/pricewatch_api/internal/repository"
	"github.com/GTDGit/pricewatch_api/internal/repository/mongostore"
	"github.com/GTDGit/pricewatch_api/internal/service"
)

// MigrationsURL is where golang-migrate reads the PostgreSQL schema from.
const MigrationsURL = "file://migrations"

// Stores bundles the product and user stores of one backend.
type Stores struct {
	Driver   string
	Products service.ProductStore
	Users    service.UserStore

	ping  func(ctx context.Context) error
	close func() error
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	return s.close()
}

// OpenStores connects to the backend named by cfg.Store and prepares its
// schema: migrations for PostgreSQL, indexes for MongoDB.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, &cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")
		return &Stores{
			Driver:   config.StoreMongo,
			Products: mongostore.NewProductStore(db),
			Users:    mongostore.NewUserStore(db),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return client.Disconnect(ctx)
			},
		}, nil
	default:
		db, err := database.Connect(ctx, &cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Str("database", cfg.DB.Name).Msg("Connected to PostgreSQL")
		return &Stores{
			Driver:   config.StorePostgres,
			Products: repository.NewProductRepository(db),
			Users:    repository.NewUserRepository(db),
			ping:     db.PingContext,
			close:    db.Close,
		}, nil
	}
}

// RunMigrations runs database migrations using golang-migrate.
func RunMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(MigrationsURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
