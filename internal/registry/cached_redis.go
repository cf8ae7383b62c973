//go:build registry_redis
// +build registry_redis

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the cache layer in front of a backing
// Registry (typically PostgresRegistry).
type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addrs: []string{"localhost:6379"},
		TTL:   1 * time.Hour,
	}
}

// CachedRegistry wraps a backing Registry with a Redis-backed cache,
// so repeated substance lookups during a large multi-trial batch don't
// round-trip to Postgres every time (§5 worker pool concerns: many
// goroutines reading the same small set of substances concurrently).
type CachedRegistry struct {
	backing Registry
	client  redis.UniversalClient
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedRegistry wraps backing with a Redis cache per cfg.
func NewCachedRegistry(backing Registry, cfg RedisConfig, logger *slog.Logger) *CachedRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &CachedRegistry{backing: backing, client: client, ttl: ttl, logger: logger}
}

func cacheKey(name string) string {
	return "kigalisim:substance-default:" + key(name)
}

// Get returns name's default, consulting Redis before falling through
// to the backing registry and populating the cache on a miss.
func (c *CachedRegistry) Get(ctx context.Context, name string) (SubstanceDefault, error) {
	raw, err := c.client.Get(ctx, cacheKey(name)).Bytes()
	if err == nil {
		var d SubstanceDefault
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			return d, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("registry: redis get failed, falling back", "error", err)
	}

	d, err := c.backing.Get(ctx, name)
	if err != nil {
		return SubstanceDefault{}, err
	}

	if encoded, marshalErr := json.Marshal(d); marshalErr == nil {
		if setErr := c.client.Set(ctx, cacheKey(name), encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("registry: redis set failed", "error", setErr)
		}
	}
	return d, nil
}

// List always defers to the backing registry; listing isn't cached
// since it's a batch/validate-time operation, not a per-trial one.
func (c *CachedRegistry) List(ctx context.Context) ([]SubstanceDefault, error) {
	return c.backing.List(ctx)
}

// Close releases the Redis client.
func (c *CachedRegistry) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("registry: close redis client: %w", err)
	}
	return nil
}
