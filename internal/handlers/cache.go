package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nexusbuy-analytics/internal/analytics"
)

// invalidationRoutes maps DELETE /cache/{name} onto the key prefix it clears.
var invalidationRoutes = map[string]analytics.QueryType{
	"store-sales":        analytics.QueryStoreSalesRanking,
	"delivery-times":     analytics.QueryDeliveryTimes,
	"popular-products":   analytics.QueryPopularProducts,
	"store-top-products": analytics.QueryStoreTopProducts,
}

// CacheHandler exposes cache maintenance endpoints.
type CacheHandler struct {
	svc AnalyticsService
}

func NewCacheHandler(svc AnalyticsService) *CacheHandler {
	return &CacheHandler{svc: svc}
}

type invalidateResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// Invalidate handles DELETE /cache/{name}?region=.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	q, err := queryTypeParam(r, "name")
	if err != nil {
		writeError(w, r, err)
		return
	}

	reg := region(r)
	deleted, err := h.svc.Invalidate(r.Context(), q, reg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := fmt.Sprintf("cache invalidated for %s", q)
	if reg != "" {
		msg += " in region " + reg
	}
	writeJSON(w, http.StatusOK, invalidateResponse{Message: msg, Deleted: deleted})
}

// Status handles GET /cache/{query_type}/status?region=[&store_id=].
func (h *CacheHandler) Status(w http.ResponseWriter, r *http.Request) {
	q, err := queryTypeParam(r, "query_type")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var sub []string
	if raw := r.URL.Query().Get("store_id"); raw != "" {
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, r, fmt.Errorf("%w: store_id %q is not an integer", analytics.ErrInvalidInput, raw))
			return
		}
		sub = append(sub, raw)
	}

	st, err := h.svc.Status(r.Context(), q, region(r), sub...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// queryTypeParam accepts both the route slug and the key prefix form.
func queryTypeParam(r *http.Request, name string) (analytics.QueryType, error) {
	raw := chi.URLParam(r, name)
	if q, ok := invalidationRoutes[raw]; ok {
		return q, nil
	}
	return analytics.ParseQueryType(raw)
}

// Pinger is satisfied by cache stores and database adapters.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns GET /healthz, answering 503 when any dependency is down.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := make(map[string]string, len(deps))
		code := http.StatusOK
		for name, p := range deps {
			if err := p.Ping(r.Context()); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		writeJSON(w, code, status)
	}
}
