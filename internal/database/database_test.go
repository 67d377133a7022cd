package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/GTDGit/pricewatch_api/internal/config"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "price watch",
		Password: "p@ss/word",
		Name:     "catalog",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://price+watch:p%40ss%2Fword@db:5432/catalog?sslmode=disable", dsn)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoff(1))
	assert.Equal(t, time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(4))
	assert.Equal(t, maxDelay, backoff(5))
}

func TestConnect_NilConfig(t *testing.T) {
	_, err := Connect(context.Background(), nil)
	require.Error(t, err)
}

func TestConnectMongo_NilConfig(t *testing.T) {
	_, _, err := ConnectMongo(context.Background(), nil)
	require.Error(t, err)
}
