package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Zereker/filesearch/internal/domain"
)

const redisKeyPrefix = "filesearch:store:"

// RedisConfig configures the redis cache backend
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      string `toml:"ttl"` // entry lifetime, default "10m"
}

// Validate checks redis configuration
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required when backend is redis")
	}
	if c.TTL != "" {
		if _, err := time.ParseDuration(c.TTL); err != nil {
			return fmt.Errorf("ttl is invalid: %v", err)
		}
	}
	return nil
}

func (c RedisConfig) ttl() time.Duration {
	if c.TTL == "" {
		return 10 * time.Minute
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// Redis is the shared cache backend for multi-replica deployments. Entries
// carry a TTL: unlike the in-process backend, a remote store renamed or
// deleted by another replica must eventually fall out of the cache.
type Redis struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis creates a redis-backed cache and verifies connectivity
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		logger: slog.Default().With("module", "cache.redis"),
		client: client,
		ttl:    cfg.ttl(),
	}, nil
}

// Get returns the cached descriptor for a display name
func (r *Redis) Get(ctx context.Context, displayName string) (*domain.StoreDescriptor, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+displayName).Bytes()
	if err != nil {
		return nil, false
	}

	var descriptor domain.StoreDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		r.logger.Warn("failed to unmarshal cached store", "display_name", displayName, "error", err)
		return nil, false
	}

	return &descriptor, true
}

// Set stores a descriptor under its display name. Cache write failures are
// logged, never surfaced: the cache is an optimization.
func (r *Redis) Set(ctx context.Context, displayName string, store *domain.StoreDescriptor) {
	if store == nil {
		return
	}

	data, err := json.Marshal(store)
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, redisKeyPrefix+displayName, data, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to set cache entry", "display_name", displayName, "error", err)
	}
}

// Delete removes one entry
func (r *Redis) Delete(ctx context.Context, displayName string) {
	if err := r.client.Del(ctx, redisKeyPrefix+displayName).Err(); err != nil {
		r.logger.Warn("failed to delete cache entry", "display_name", displayName, "error", err)
	}
}

// Clear removes all cached store entries
func (r *Redis) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
}

// Close closes the redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
