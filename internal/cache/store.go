package cache

import (
	"context"
	"strings"
	"time"
)

// TimestampSuffix names the companion entry that records when a value was written.
const TimestampSuffix = ":timestamp"

// Key identifies one cached aggregate.
// Rendered as <query_type>:<region>[:<sub>...].
type Key struct {
	QueryType string
	Region    string
	Sub       []string
}

// String converts the structured key into the final string used in Redis/map.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.QueryType)
	b.WriteByte(':')
	b.WriteString(k.Region)
	for _, s := range k.Sub {
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// TimestampKey returns the companion key holding the ISO-8601 creation time.
func (k Key) TimestampKey() string {
	return k.String() + TimestampSuffix
}

// Store is the key-value cache used by the analytics service.
// Implemented by memory cache (dev/tests) and Redis cache (prod).
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Get reports (nil, false, nil) on a clean miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key; ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteByPattern removes the key equal to prefix and every key under
	// "<prefix>:". It is best-effort and not atomic.
	DeleteByPattern(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
}

// matchesPrefix reports whether key falls under prefix as DeleteByPattern defines it.
func matchesPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+":")
}
