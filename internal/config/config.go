package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported STORE_DRIVER values.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// SessionTTL bounds the lifetime of an issued token. Zero keeps tokens
	// valid until the next login or logout.
	SessionTTL time.Duration

	// RoleDeniedStatus is the HTTP status returned when a role check fails.
	RoleDeniedStatus int

	CORSAllowedHosts []string

	// Store selects the persistence backend: "postgres" or "mongo".
	Store string

	DB     DatabaseConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Cache  CacheConfig
	SMTP   SMTPConfig
	Feed   FeedConfig
	Worker WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// MongoConfig contains MongoDB connection parameters.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig contains TTLs for cached responses.
type CacheConfig struct {
	TopViewsTTL time.Duration
}

// SMTPConfig contains the outgoing mail server used for price alerts.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether price alert mail can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// FeedConfig contains the S3 location scrapers upload their output to.
type FeedConfig struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// Charset of scraped feed files, e.g. windows-1250. Empty means UTF-8.
	Charset string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	PriceAlertInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Production environments rely on real environment variables only.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = splitList(getEnv("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000"))
	cfg.Store = strings.ToLower(getEnv("STORE_DRIVER", StorePostgres))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// MongoDB
	cfg.Mongo = MongoConfig{
		URI:      getEnv("MONGO_URI", ""),
		Database: getEnv("MONGO_DB", "pricewatch"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// SMTP
	cfg.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnv("SMTP_PORT", "587"),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", getEnv("SMTP_USERNAME", "")),
	}

	// Scrape feed bucket
	cfg.Feed = FeedConfig{
		Region:          getEnv("FEED_S3_REGION", "eu-central-1"),
		Bucket:          getEnv("FEED_S3_BUCKET", ""),
		Endpoint:        getEnv("FEED_S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("FEED_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("FEED_S3_SECRET_ACCESS_KEY", ""),
		Charset:         getEnv("FEED_CHARSET", ""),
	}

	var err error
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", "0s"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.Cache.TopViewsTTL, err = parseDurationEnv("TOP_VIEWS_CACHE_TTL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid TOP_VIEWS_CACHE_TTL: %w", err)
	}
	if cfg.Worker.PriceAlertInterval, err = parseDurationEnv("PRICE_ALERT_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid PRICE_ALERT_INTERVAL: %w", err)
	}
	if cfg.Worker.PriceAlertInterval == 0 {
		return nil, errors.New("invalid PRICE_ALERT_INTERVAL: must be > 0")
	}

	cfg.RoleDeniedStatus = getEnvInt("ROLE_DENIED_STATUS", http.StatusUnauthorized)
	if cfg.RoleDeniedStatus != http.StatusUnauthorized && cfg.RoleDeniedStatus != http.StatusForbidden {
		return nil, fmt.Errorf("invalid ROLE_DENIED_STATUS: must be 401 or 403, got %d", cfg.RoleDeniedStatus)
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
			return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	case StoreMongo:
		if cfg.Mongo.URI == "" {
			return nil, errors.New("mongo configuration incomplete: ensure MONGO_URI is set")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: must be %q or %q, got %q", StorePostgres, StoreMongo, cfg.Store)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
