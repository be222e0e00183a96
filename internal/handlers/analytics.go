package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nexusbuy-analytics/internal/analytics"
)

// AnalyticsService is the part of analytics.Service the HTTP layer uses.
type AnalyticsService interface {
	StoreSalesRanking(ctx context.Context, region string) (*analytics.Result[analytics.StoreSales], error)
	DeliveryTimes(ctx context.Context, region string) (*analytics.Result[analytics.DeliveryTime], error)
	PopularProducts(ctx context.Context, region string) (*analytics.Result[analytics.PopularProduct], error)
	StoreTopProducts(ctx context.Context, region string, storeID int64) (*analytics.Result[analytics.StoreTopProduct], error)
	Product(ctx context.Context, productID int64, region string) (*analytics.ProductDetail, error)
	Store(ctx context.Context, storeID int64, region string) (*analytics.StoreDetail, error)
	StoreOrders(ctx context.Context, storeID int64, region string) ([]analytics.StoreOrder, error)
	Question(ctx context.Context, productID int64, region string) (analytics.Document, error)
	Conversation(ctx context.Context, orderID int64, region string) (analytics.Document, error)
	Recommendations(ctx context.Context, userID int64, region string) (*analytics.Recommendations, error)
	Invalidate(ctx context.Context, q analytics.QueryType, region string) (int, error)
	Status(ctx context.Context, q analytics.QueryType, region string, sub ...string) (*analytics.CacheStatus, error)
}

// AnalyticsHandler serves the cached analytical endpoints and product detail.
type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// StoreSalesRanking handles GET /stores/sales-ranking?region=.
func (h *AnalyticsHandler) StoreSalesRanking(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.StoreSalesRanking(r.Context(), region(r))
	respond(w, r, res, err)
}

// DeliveryTimes handles GET /shipments/delivery-times?region=.
func (h *AnalyticsHandler) DeliveryTimes(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeliveryTimes(r.Context(), region(r))
	respond(w, r, res, err)
}

// PopularProducts handles GET /popular-products?region=.
func (h *AnalyticsHandler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PopularProducts(r.Context(), region(r))
	respond(w, r, res, err)
}

// StoreTopProducts handles GET /stores/{store_id}/top-products?region=.
func (h *AnalyticsHandler) StoreTopProducts(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "store_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.StoreTopProducts(r.Context(), region(r), storeID)
	respond(w, r, res, err)
}

// Product handles GET /products/{product_id}?region=. It is never cached.
func (h *AnalyticsHandler) Product(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Product(r.Context(), productID, region(r))
	respond(w, r, res, err)
}

// Store handles GET /stores/{store_id}?region=.
func (h *AnalyticsHandler) Store(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "store_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Store(r.Context(), storeID, region(r))
	respond(w, r, res, err)
}

// StoreOrders handles GET /stores/{store_id}/orders?region=.
func (h *AnalyticsHandler) StoreOrders(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "store_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.StoreOrders(r.Context(), storeID, region(r))
	respond(w, r, &res, err)
}

// Questions handles GET /questions/{product_id}?region=.
func (h *AnalyticsHandler) Questions(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Question(r.Context(), productID, region(r))
	respond(w, r, &res, err)
}

// Conversation handles GET /conversations/{order_id}?region=.
func (h *AnalyticsHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Conversation(r.Context(), orderID, region(r))
	respond(w, r, &res, err)
}

// Recommendations handles GET /recommendations?user_id=&region=.
func (h *AnalyticsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Recommendations(r.Context(), userID, region(r))
	respond(w, r, res, err)
}

func respond[T any](w http.ResponseWriter, r *http.Request, res *T, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func region(r *http.Request) string {
	return r.URL.Query().Get("region")
}

func pathID(r *http.Request, name string) (int64, error) {
	return parseID(name, chi.URLParam(r, name))
}

func queryID(r *http.Request, name string) (int64, error) {
	return parseID(name, r.URL.Query().Get(name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", analytics.ErrInvalidInput, name, raw)
	}
	return id, nil
}
