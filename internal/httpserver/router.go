package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"nexusbuy-analytics/internal/handlers"
	"nexusbuy-analytics/internal/metrics"
	"nexusbuy-analytics/internal/middleware"
)

type Deps struct {
	Analytics      *handlers.AnalyticsHandler
	Cache          *handlers.CacheHandler
	Health         map[string]handlers.Pinger
	RequestTimeout time.Duration
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, deps Deps) {
	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.RequestLog())
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(deps.RequestTimeout))

	// analytics
	r.Get("/stores/sales-ranking", deps.Analytics.StoreSalesRanking)
	r.Get("/stores/{store_id}/top-products", deps.Analytics.StoreTopProducts)
	r.Get("/shipments/delivery-times", deps.Analytics.DeliveryTimes)
	r.Get("/popular-products", deps.Analytics.PopularProducts)
	r.Get("/products/{product_id}", deps.Analytics.Product)

	// lookups
	r.Get("/stores/{store_id}", deps.Analytics.Store)
	r.Get("/stores/{store_id}/orders", deps.Analytics.StoreOrders)
	r.Get("/questions/{product_id}", deps.Analytics.Questions)
	r.Get("/conversations/{order_id}", deps.Analytics.Conversation)
	r.Get("/recommendations", deps.Analytics.Recommendations)
	r.Get("/recommendations/", deps.Analytics.Recommendations)

	// cache maintenance
	r.Route("/cache", func(r chi.Router) {
		r.Delete("/{name}", deps.Cache.Invalidate)
		r.Get("/{query_type}/status", deps.Cache.Status)
	})

	r.Get("/healthz", handlers.Health(deps.Health))
	r.Handle("/metrics", metrics.Handler())
}
