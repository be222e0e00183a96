package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"nexusbuy-analytics/internal/metrics"
	"nexusbuy-analytics/pkg/logging/logging"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (c *LoggingStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := c.inner.Exists(ctx, key)

	result := lookupResult(ok, err)
	c.record(ctx, "cache_exists", key, result, start, err)
	return ok, err
}

func (c *LoggingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)

	result := lookupResult(ok, err)
	c.record(ctx, "cache_get", key, result, start, err, zap.Int("bytes", len(value)))
	return value, ok, err
}

func (c *LoggingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)

	result := "ok"
	if err != nil {
		result = "error"
	}
	c.record(ctx, "cache_set", key, result, start, err,
		zap.Int("bytes", len(value)),
		zap.Duration("ttl", ttl),
	)
	return err
}

func (c *LoggingStore) DeleteByPattern(ctx context.Context, prefix string) (int, error) {
	start := time.Now()
	n, err := c.inner.DeleteByPattern(ctx, prefix)

	result := "ok"
	if err != nil {
		result = "error"
	}
	c.record(ctx, "cache_delete_by_pattern", prefix, result, start, err, zap.Int("deleted", n))
	return n, err
}

func (c *LoggingStore) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *LoggingStore) record(ctx context.Context, op, key, result string, start time.Time, err error, extra ...zap.Field) {
	elapsed := time.Since(start)
	metrics.CacheOperationSeconds.WithLabelValues(op, result).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result),
		zap.Float64("latency_ms", float64(elapsed.Microseconds())/1000.0),
	}
	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("query_type", parts.queryType),
			zap.String("region", parts.region),
		)
	}
	fields = append(fields, extra...)

	logger := logging.L(ctx)
	if err != nil {
		logger.Error(op, append(fields, zap.Error(err))...)
		return
	}
	logger.Debug(op, fields...)
}

func lookupResult(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "hit"
	default:
		return "miss"
	}
}

type keyParts struct {
	queryType string
	region    string
}

// Expecting: <QUERY_TYPE>:<REGION>[:...]
func parseKey(key string) (keyParts, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return keyParts{}, false
	}
	return keyParts{queryType: parts[0], region: parts[1]}, true
}
