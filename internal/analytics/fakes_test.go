package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"nexusbuy-analytics/internal/cache"
)

type aggregateCall struct {
	query string
	args  []any
}

// fakeRelational answers Aggregate by query text.
type fakeRelational struct {
	mu      sync.Mutex
	rows    map[string][]Row
	err     error
	stores  map[int64]string // store id -> region
	calls   []aggregateCall
	started chan struct{} // receives once per Aggregate call when non-nil
	release chan struct{} // Aggregate blocks until closed or ctx is done when non-nil
}

func newFakeRelational() *fakeRelational {
	return &fakeRelational{
		rows:   make(map[string][]Row),
		stores: make(map[int64]string),
	}
}

func (f *fakeRelational) Aggregate(ctx context.Context, query string, args ...any) ([]Row, error) {
	f.mu.Lock()
	f.calls = append(f.calls, aggregateCall{query: query, args: args})
	rows, err := f.rows[query], f.err
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	// Hand out copies so normalization cannot alias fixtures.
	out := make([]Row, len(rows))
	for i, r := range rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (f *fakeRelational) ExistsInRegion(ctx context.Context, table string, id int64, region string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	r, ok := f.stores[id]
	return ok && r == region, nil
}

func (f *fakeRelational) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.query == query {
			n++
		}
	}
	return n
}

// fakeDocuments serves product documents by id and other collections by
// equality on the scalar filter fields.
type fakeDocuments struct {
	mu          sync.Mutex
	docs        map[int64]map[string]any
	collections map[string][]map[string]any
	err         error
	filters     []map[string]any
	findOpts    []FindOptions
}

func (f *fakeDocuments) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if collection == productsCollection {
		id, _ := filter["_id"].(int64)
		return f.docs[id], nil
	}
	for _, doc := range f.collections[collection] {
		if matches(doc, filter) {
			return doc, nil
		}
	}
	return nil, nil
}

func (f *fakeDocuments) FindMany(ctx context.Context, collection string, filter map[string]any, opts FindOptions) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.findOpts = append(f.findOpts, opts)
	if f.err != nil {
		return nil, f.err
	}
	var out []map[string]any
	for _, doc := range f.collections[collection] {
		if opts.Limit > 0 && int64(len(out)) == opts.Limit {
			break
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// matches compares scalar fields only; operators such as $or are ignored.
func matches(doc, filter map[string]any) bool {
	for k, want := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if doc[k] != want {
			return false
		}
	}
	return true
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	cache.Store
	getErr error
	setErr error
}

func (s *faultyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *faultyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, key, value, ttl)
}

var errBoom = errors.New("boom")
