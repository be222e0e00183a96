package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nexusbuy-analytics/pkg/logging/logging"
)

// Invalidate deletes cached entries of q, with their timestamps. An empty
// region clears every region. The delete is best-effort and not atomic:
// a read racing it may observe either state.
func (s *Service) Invalidate(ctx context.Context, q QueryType, region string) (int, error) {
	if _, err := ParseQueryType(string(q)); err != nil {
		return 0, err
	}

	prefix := string(q)
	if region != "" {
		if err := validateRegion(region); err != nil {
			return 0, err
		}
		prefix += ":" + region
	}

	deleted, err := s.cache.DeleteByPattern(ctx, prefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidate %s: %w", prefix, err)
	}

	logging.L(ctx).Info("cache_invalidated",
		zap.String("query_type", string(q)),
		zap.String("region", region),
		zap.Int("deleted", deleted),
	)
	return deleted, nil
}

// CacheStatus describes the cache entry of one query scope.
type CacheStatus struct {
	Key      string     `json:"key"`
	Exists   bool       `json:"exists"`
	CachedAt *time.Time `json:"cached_at,omitempty"`
	TTL      string     `json:"ttl"`
}

// Status reports whether q is cached for region (and sub-keys). The
// companion timestamp is advisory; a missing or unreadable one is left out.
func (s *Service) Status(ctx context.Context, q QueryType, region string, sub ...string) (*CacheStatus, error) {
	if _, err := ParseQueryType(string(q)); err != nil {
		return nil, err
	}
	if err := validateRegion(region); err != nil {
		return nil, err
	}

	key := q.Key(region, sub...)
	status := &CacheStatus{Key: key.String(), TTL: q.TTL().String()}

	exists, err := s.cache.Exists(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("cache status %s: %w", key, err)
	}
	status.Exists = exists
	if !exists {
		return status, nil
	}

	raw, ok, err := s.cache.Get(ctx, key.TimestampKey())
	if err != nil || !ok {
		return status, nil
	}
	var stamp string
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return status, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		status.CachedAt = &t
	}
	return status, nil
}
