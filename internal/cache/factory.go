package cache

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend         string // "memory" or "redis"
	Prefix          string
	CleanupInterval time.Duration
}

// NewStore picks the backend named by cfg.Backend; anything but "redis" is in-memory.
func NewStore(cfg Config, redisClient redis.UniversalClient, clock clockwork.Clock) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryStore(cfg.CleanupInterval, clock)
	}
}
