package cache

import (
	"context"
	"fmt"

	"github.com/Zereker/filesearch/internal/domain"
)

// Store caches resolved store descriptors keyed by display name so repeated
// lookups skip the remote paginated scan. Entries are invalidated on store
// deletion; the in-memory backend trusts entries for the process lifetime,
// the redis backend applies a TTL.
type Store interface {
	Get(ctx context.Context, displayName string) (*domain.StoreDescriptor, bool)
	Set(ctx context.Context, displayName string, store *domain.StoreDescriptor)
	Delete(ctx context.Context, displayName string)
	Clear(ctx context.Context)
}

// Config selects and configures the cache backend
type Config struct {
	Backend string      `toml:"backend"` // memory (default) or redis
	Redis   RedisConfig `toml:"redis"`
}

// Validate checks cache configuration
func (c *Config) Validate() error {
	switch c.Backend {
	case "", "memory":
		return nil
	case "redis":
		return c.Redis.Validate()
	default:
		return fmt.Errorf("invalid backend: %s, must be memory or redis", c.Backend)
	}
}

// New creates the configured cache backend
func New(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Backend == "redis" {
		return NewRedis(cfg.Redis)
	}
	return NewMemory(), nil
}
