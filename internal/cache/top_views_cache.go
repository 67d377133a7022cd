package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

const topViewsPrefix = "products:top:"

// TopViewsCache caches most/least viewed product listings.
type TopViewsCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewTopViewsCache creates a TopViewsCache. A zero ttl disables caching.
func NewTopViewsCache(redis *RedisClient, ttl time.Duration) *TopViewsCache {
	return &TopViewsCache{
		redis: redis,
		ttl:   ttl,
	}
}

// key returns the Redis key for one listing variant.
// Format: products:top:{asc|desc}:{limit}:{extended}
func (c *TopViewsCache) key(ascending bool, limit int, extended bool) string {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	return fmt.Sprintf("%s%s:%d:%t", topViewsPrefix, dir, limit, extended)
}

// Get returns a cached listing. It returns ErrMiss when nothing is cached.
func (c *TopViewsCache) Get(ctx context.Context, ascending bool, limit int, extended bool) ([]models.Product, error) {
	if c.ttl <= 0 {
		return nil, ErrMiss
	}
	raw, err := c.redis.Get(ctx, c.key(ascending, limit, extended))
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal top products: %w", err)
	}
	return products, nil
}

// Set stores a listing until the TTL elapses.
func (c *TopViewsCache) Set(ctx context.Context, ascending bool, limit int, extended bool, products []models.Product) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal top products: %w", err)
	}
	return c.redis.Set(ctx, c.key(ascending, limit, extended), string(data), c.ttl)
}

// Invalidate drops every cached listing.
func (c *TopViewsCache) Invalidate(ctx context.Context) error {
	return c.redis.DeletePrefix(ctx, topViewsPrefix)
}
