package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"nexusbuy-analytics/internal/cache"
	"nexusbuy-analytics/internal/metrics"
	"nexusbuy-analytics/pkg/logging/logging"
)

// Source tells the caller where an aggregation result came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceOrigin Source = "origin"
)

// Result is the tagged union returned by every analytical query.
// CachedAt is only set on the origin path. CacheWriteError is set when the
// fresh result could not be stored, so the next request recomputes it.
type Result[T any] struct {
	Source          Source     `json:"source"`
	Region          string     `json:"region"`
	CachedAt        *time.Time `json:"cached_at,omitempty"`
	CacheWriteError string     `json:"cache_write_error,omitempty"`
	Data            []T        `json:"data"`
}

// Options tune a Service. The zero value is usable.
type Options struct {
	Clock clockwork.Clock
	// CoalesceMisses lets concurrent misses on one key share a single
	// origin computation. Off by default: concurrent misses each hit origin
	// and the last cache write wins.
	CoalesceMisses bool
	// LoadTimeout bounds a coalesced origin load. The shared load is
	// detached from the cancellation of the caller that started it, so a
	// caller that goes away does not fail the others waiting on the key.
	// Zero leaves it unbounded.
	LoadTimeout time.Duration
}

// Service serves analytical queries through a read-through cache.
type Service struct {
	cache       cache.Store
	relational  Relational
	documents   Documents
	clock       clockwork.Clock
	coalesce    bool
	loadTimeout time.Duration
	inflight    singleflight.Group
}

func NewService(store cache.Store, relational Relational, documents Documents, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cache:       store,
		relational:  relational,
		documents:   documents,
		clock:       clock,
		coalesce:    opts.CoalesceMisses,
		loadTimeout: opts.LoadTimeout,
	}
}

// StoreSalesRanking returns the ten stores with the highest sales in region.
func (s *Service) StoreSalesRanking(ctx context.Context, region string) (*Result[StoreSales], error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	q := QueryStoreSalesRanking
	return readThrough(ctx, s, q, q.Key(region), region, func(ctx context.Context) ([]StoreSales, error) {
		rows, err := s.relational.Aggregate(ctx, sqlStoreSalesRanking, region)
		if err != nil {
			return nil, err
		}
		return decodeRows[StoreSales](normalizeRows(rows))
	})
}

// DeliveryTimes returns the distribution of delivery hours for delivered shipments in region.
func (s *Service) DeliveryTimes(ctx context.Context, region string) (*Result[DeliveryTime], error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	q := QueryDeliveryTimes
	return readThrough(ctx, s, q, q.Key(region), region, func(ctx context.Context) ([]DeliveryTime, error) {
		rows, err := s.relational.Aggregate(ctx, sqlDeliveryTimes, region)
		if err != nil {
			return nil, err
		}
		return decodeRows[DeliveryTime](normalizeRows(rows))
	})
}

// PopularProducts returns the five best sellers of the last 30 days in region,
// each enriched with its first image and discounted price.
func (s *Service) PopularProducts(ctx context.Context, region string) (*Result[PopularProduct], error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	q := QueryPopularProducts
	return readThrough(ctx, s, q, q.Key(region), region, func(ctx context.Context) ([]PopularProduct, error) {
		rows, err := s.relational.Aggregate(ctx, sqlPopularProducts, region)
		if err != nil {
			return nil, err
		}
		return s.enrichPopular(ctx, region, normalizeRows(rows))
	})
}

// StoreTopProducts returns the ten products of storeID with the highest revenue in region.
func (s *Service) StoreTopProducts(ctx context.Context, region string, storeID int64) (*Result[StoreTopProduct], error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if err := validateID("store_id", storeID); err != nil {
		return nil, err
	}
	q := QueryStoreTopProducts
	key := q.Key(region, strconv.FormatInt(storeID, 10))
	return readThrough(ctx, s, q, key, region, func(ctx context.Context) ([]StoreTopProduct, error) {
		ok, err := s.relational.ExistsInRegion(ctx, storesTable, storeID, region)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("store %d in region %q: %w", storeID, region, ErrNotFound)
		}
		rows, err := s.relational.Aggregate(ctx, sqlStoreTopProducts, region, storeID)
		if err != nil {
			return nil, err
		}
		return decodeRows[StoreTopProduct](normalizeRows(rows))
	})
}

// readThrough serves key from the cache, or computes it with load and writes
// it back together with its companion timestamp.
func readThrough[T any](
	ctx context.Context,
	s *Service,
	q QueryType,
	key cache.Key,
	region string,
	load func(ctx context.Context) ([]T, error),
) (*Result[T], error) {
	logger := logging.L(ctx)
	start := time.Now()
	cacheKey := key.String()

	// ---- cache lookup ----
	lookupStart := time.Now()
	cached, hit, err := s.cache.Get(ctx, cacheKey)
	lookupLatency := time.Since(lookupStart)

	switch {
	case err != nil:
		// Cache is best-effort on reads; log and treat as miss.
		metrics.CacheLookupsTotal.WithLabelValues(string(q), "error").Inc()
		logger.Warn("cache_get_error", zap.String("cache_key", cacheKey), zap.Error(err))
	case hit:
		var data []T
		if err := json.Unmarshal(cached, &data); err != nil {
			metrics.CacheLookupsTotal.WithLabelValues(string(q), "error").Inc()
			logger.Warn("cache_unmarshal_error", zap.String("cache_key", cacheKey), zap.Error(err))
			break
		}
		if data == nil {
			data = []T{}
		}
		metrics.CacheLookupsTotal.WithLabelValues(string(q), "hit").Inc()
		logger.Info("cache_decision",
			zap.String("query_type", string(q)),
			zap.String("cache_key", cacheKey),
			zap.Bool("cache_hit", true),
			zap.Duration("cache_lookup_latency", lookupLatency),
			zap.Duration("total_latency", time.Since(start)),
		)
		return &Result[T]{Source: SourceCache, Region: region, Data: data}, nil
	default:
		metrics.CacheLookupsTotal.WithLabelValues(string(q), "miss").Inc()
	}

	// ---- cache miss: origin ----
	if !s.coalesce {
		res, err := computeAndStore(ctx, s, q, key, region, load)
		if err == nil {
			logMissDecision(logger, q, cacheKey, lookupLatency, start)
		}
		return res, err
	}

	ch := s.inflight.DoChan(cacheKey, func() (any, error) {
		loadCtx, cancel := s.sharedLoadContext(ctx)
		defer cancel()
		return computeAndStore(loadCtx, s, q, key, region, load)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		logMissDecision(logger.With(zap.Bool("coalesced", r.Shared)), q, cacheKey, lookupLatency, start)
		return r.Val.(*Result[T]), nil
	}
}

// sharedLoadContext keeps the values of ctx (request logger, ids) but not
// its cancellation, bounded by the configured load timeout.
func (s *Service) sharedLoadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.loadTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, s.loadTimeout)
}

// computeAndStore runs the origin load, then writes the value and its
// timestamp with the query's TTL. A failed origin load caches nothing.
func computeAndStore[T any](
	ctx context.Context,
	s *Service,
	q QueryType,
	key cache.Key,
	region string,
	load func(ctx context.Context) ([]T, error),
) (*Result[T], error) {
	logger := logging.L(ctx)

	originStart := time.Now()
	data, err := load(ctx)
	originLatency := time.Since(originStart)
	if err != nil {
		metrics.OriginLatencySeconds.WithLabelValues(string(q), "error").Observe(originLatency.Seconds())
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &OriginError{QueryType: q, Err: err}
	}
	metrics.OriginLatencySeconds.WithLabelValues(string(q), "ok").Observe(originLatency.Seconds())
	if data == nil {
		data = []T{}
	}

	now := s.clock.Now()
	res := &Result[T]{
		Source:   SourceOrigin,
		Region:   region,
		CachedAt: &now,
		Data:     data,
	}

	ttl := q.TTL()
	payload, err := json.Marshal(data)
	if err == nil {
		err = s.cache.Set(ctx, key.String(), payload, ttl)
	}
	if err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues(string(q)).Inc()
		logger.Error("cache_set_error",
			zap.String("cache_key", key.String()),
			zap.Duration("origin_latency", originLatency),
			zap.Error(err),
		)
		res.CacheWriteError = "result computed but not cached: " + err.Error()
		return res, nil
	}

	stamp, _ := json.Marshal(now.Format(time.RFC3339Nano))
	if err := s.cache.Set(ctx, key.TimestampKey(), stamp, ttl); err != nil {
		// The timestamp entry is advisory; its absence is never an error for readers.
		logger.Warn("cache_timestamp_set_error", zap.String("cache_key", key.TimestampKey()), zap.Error(err))
	}

	logger.Debug("origin_computed",
		zap.String("query_type", string(q)),
		zap.Int("records", len(data)),
		zap.Duration("origin_latency", originLatency),
	)
	return res, nil
}

func logMissDecision(logger *zap.Logger, q QueryType, cacheKey string, lookupLatency time.Duration, start time.Time) {
	logger.Info("cache_decision",
		zap.String("query_type", string(q)),
		zap.String("cache_key", cacheKey),
		zap.Bool("cache_hit", false),
		zap.Duration("cache_lookup_latency", lookupLatency),
		zap.Duration("total_latency", time.Since(start)),
	)
}

var regionPattern = regexp.MustCompile(`^[^:\s][^:]*$`)

// validateRegion rejects values that would make two scopes share a cache key.
func validateRegion(region string) error {
	err := validation.Validate(region,
		validation.Required,
		validation.Length(1, 64),
		validation.Match(regionPattern).Error("must not contain ':' or start with a space"),
	)
	if err != nil {
		return fmt.Errorf("%w: region %v", ErrInvalidInput, err)
	}
	return nil
}

func validateID(name string, id int64) error {
	if err := validation.Validate(id, validation.Required, validation.Min(int64(1))); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidInput, name, err)
	}
	return nil
}
