package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"nexusbuy-analytics/internal/analytics"
	"nexusbuy-analytics/internal/cache"
	"nexusbuy-analytics/pkg/logging/logging"
)

// stubRelational returns canned rows for any query.
type stubRelational struct {
	rows   []analytics.Row
	err    error
	stores map[int64]string
	calls  int
}

func (s *stubRelational) Aggregate(ctx context.Context, query string, args ...any) ([]analytics.Row, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]analytics.Row, len(s.rows))
	for i, r := range s.rows {
		cp := make(analytics.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (s *stubRelational) ExistsInRegion(ctx context.Context, table string, id int64, region string) (bool, error) {
	return s.stores[id] == region, nil
}

type noDocuments struct{}

func (noDocuments) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	return nil, nil
}

func (noDocuments) FindMany(ctx context.Context, collection string, filter map[string]any, opts analytics.FindOptions) ([]map[string]any, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, rel *stubRelational) (*chi.Mux, *cache.MemoryStore) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC))
	store := cache.NewMemoryStore(time.Hour, clock)
	t.Cleanup(func() { store.Close() })

	svc := analytics.NewService(store, rel, noDocuments{}, analytics.Options{Clock: clock})
	ah := NewAnalyticsHandler(svc)
	ch := NewCacheHandler(svc)

	logger := zaptest.NewLogger(t)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(logging.WithLogger(req.Context(), logger)))
		})
	})
	r.Get("/stores/sales-ranking", ah.StoreSalesRanking)
	r.Get("/stores/{store_id}/top-products", ah.StoreTopProducts)
	r.Get("/shipments/delivery-times", ah.DeliveryTimes)
	r.Get("/products/{product_id}", ah.Product)
	r.Get("/stores/{store_id}", ah.Store)
	r.Get("/stores/{store_id}/orders", ah.StoreOrders)
	r.Get("/questions/{product_id}", ah.Questions)
	r.Get("/recommendations", ah.Recommendations)
	r.Delete("/cache/{name}", ch.Invalidate)
	r.Get("/cache/{query_type}/status", ch.Status)
	r.Get("/healthz", Health(map[string]Pinger{"cache": store}))
	return r, store
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, target, rr.Body.String(), err)
	}
	return rr, body
}

func TestStoreSalesRanking_HitAfterMiss(t *testing.T) {
	rel := &stubRelational{rows: []analytics.Row{
		{"id": int64(1), "store": "Tienda Uno", "store_sales": decimal.RequireFromString("1500.50")},
	}}
	r, _ := newTestRouter(t, rel)

	rr, body := do(t, r, http.MethodGet, "/stores/sales-ranking?region=Colombia")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	if body["source"] != "origin" || body["cached_at"] == nil {
		t.Fatalf("unexpected first response %v", body)
	}
	data := body["data"].([]any)
	if rec := data[0].(map[string]any); rec["store_sales"] != 1500.5 {
		t.Fatalf("store_sales = %#v", rec["store_sales"])
	}

	rr, body = do(t, r, http.MethodGet, "/stores/sales-ranking?region=Colombia")
	if rr.Code != http.StatusOK || body["source"] != "cache" {
		t.Fatalf("expected cache hit, got %d %v", rr.Code, body)
	}
	if _, ok := body["cached_at"]; ok {
		t.Fatalf("cache hit must not carry cached_at: %v", body)
	}
	if rel.calls != 1 {
		t.Fatalf("expected a single origin query, got %d", rel.calls)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		rel    *stubRelational
		target string
		code   int
		errKey string
	}{
		{
			name:   "missing region",
			rel:    &stubRelational{},
			target: "/stores/sales-ranking",
			code:   http.StatusBadRequest,
			errKey: "invalid_input",
		},
		{
			name:   "region with separator",
			rel:    &stubRelational{},
			target: "/shipments/delivery-times?region=a:b",
			code:   http.StatusBadRequest,
			errKey: "invalid_input",
		},
		{
			name:   "non-numeric store id",
			rel:    &stubRelational{},
			target: "/stores/abc/top-products?region=Peru",
			code:   http.StatusBadRequest,
			errKey: "invalid_input",
		},
		{
			name:   "store outside region",
			rel:    &stubRelational{stores: map[int64]string{7: "Chile"}},
			target: "/stores/7/top-products?region=Peru",
			code:   http.StatusNotFound,
			errKey: "not_found",
		},
		{
			name:   "product not found",
			rel:    &stubRelational{},
			target: "/products/99?region=Peru",
			code:   http.StatusNotFound,
			errKey: "not_found",
		},
		{
			name:   "orders of store outside region",
			rel:    &stubRelational{stores: map[int64]string{7: "Chile"}},
			target: "/stores/7/orders?region=Peru",
			code:   http.StatusNotFound,
			errKey: "not_found",
		},
		{
			name:   "store not found",
			rel:    &stubRelational{},
			target: "/stores/7?region=Peru",
			code:   http.StatusNotFound,
			errKey: "not_found",
		},
		{
			name:   "questions not found",
			rel:    &stubRelational{},
			target: "/questions/42?region=Peru",
			code:   http.StatusNotFound,
			errKey: "not_found",
		},
		{
			name:   "missing user id",
			rel:    &stubRelational{},
			target: "/recommendations?region=Peru",
			code:   http.StatusBadRequest,
			errKey: "invalid_input",
		},
		{
			name:   "origin failure",
			rel:    &stubRelational{err: errors.New("connection refused")},
			target: "/shipments/delivery-times?region=Peru",
			code:   http.StatusInternalServerError,
			errKey: "origin_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.rel)
			rr, body := do(t, r, http.MethodGet, tt.target)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, rr.Code, body)
			}
			if body["error"] != tt.errKey || body["message"] == "" {
				t.Fatalf("unexpected error body %v", body)
			}
		})
	}
}

func TestStoreOrders(t *testing.T) {
	rel := &stubRelational{
		stores: map[int64]string{7: "Peru"},
		rows: []analytics.Row{{
			"order_id":       int64(100),
			"total_price":    decimal.RequireFromString("80.50"),
			"region":         "Peru",
			"payment_status": "Paid",
			"order_details":  []any{map[string]any{"product_id": 42.0, "quantity": 2.0}},
		}},
	}
	r, _ := newTestRouter(t, rel)

	req := httptest.NewRequest(http.MethodGet, "/stores/7/orders?region=Peru", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var orders []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &orders); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(orders) != 1 || orders[0]["total_price"] != 80.5 || orders[0]["payment_status"] != "Paid" {
		t.Fatalf("unexpected orders %v", orders)
	}
	lines := orders[0]["order_details"].([]any)
	if len(lines) != 1 || lines[0].(map[string]any)["product_id"] != float64(42) {
		t.Fatalf("unexpected order details %v", lines)
	}
}

func TestInvalidateAndStatus(t *testing.T) {
	rel := &stubRelational{rows: []analytics.Row{
		{"id": int64(1), "store": "Tienda Uno", "store_sales": decimal.NewFromInt(10)},
	}}
	r, store := newTestRouter(t, rel)

	for _, region := range []string{"Colombia", "Mexico"} {
		if rr, body := do(t, r, http.MethodGet, "/stores/sales-ranking?region="+region); rr.Code != http.StatusOK {
			t.Fatalf("warm %s: %d %v", region, rr.Code, body)
		}
	}

	rr, body := do(t, r, http.MethodGet, "/cache/store_sales_ranking/status?region=Colombia")
	if rr.Code != http.StatusOK || body["exists"] != true || body["cached_at"] == nil {
		t.Fatalf("unexpected status %d %v", rr.Code, body)
	}

	rr, body = do(t, r, http.MethodDelete, "/cache/store-sales?region=Colombia")
	if rr.Code != http.StatusOK || body["deleted"] != float64(2) {
		t.Fatalf("unexpected invalidate response %d %v", rr.Code, body)
	}

	rr, body = do(t, r, http.MethodGet, "/cache/store-sales/status?region=Colombia")
	if rr.Code != http.StatusOK || body["exists"] != false {
		t.Fatalf("expected entry gone, got %d %v", rr.Code, body)
	}

	rr, body = do(t, r, http.MethodDelete, "/cache/store-sales")
	if rr.Code != http.StatusOK || body["deleted"] != float64(2) {
		t.Fatalf("unexpected invalidate-all response %d %v", rr.Code, body)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty cache, %d entries left", store.Len())
	}

	rr, body = do(t, r, http.MethodDelete, "/cache/unknown")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown cache, got %d %v", rr.Code, body)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &stubRelational{})
	rr, body := do(t, r, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK || body["cache"] != "ok" {
		t.Fatalf("unexpected health %d %v", rr.Code, body)
	}
}
