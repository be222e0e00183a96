package analytics

import (
	"fmt"
	"time"

	"nexusbuy-analytics/internal/cache"
)

// QueryType names an analytical query and doubles as its cache key prefix.
type QueryType string

const (
	QueryStoreSalesRanking QueryType = "store_sales_ranking"
	QueryDeliveryTimes     QueryType = "delivery_times"
	QueryPopularProducts   QueryType = "popular_products"
	QueryStoreTopProducts  QueryType = "store_top_products"
)

const (
	// Long-lived aggregates.
	LongTTL = 30 * 24 * time.Hour
	// Aggregates over a trailing 30-day window shift daily.
	RollingWindowTTL = 24 * time.Hour
)

var queryTTLs = map[QueryType]time.Duration{
	QueryStoreSalesRanking: LongTTL,
	QueryDeliveryTimes:     LongTTL,
	QueryPopularProducts:   RollingWindowTTL,
	QueryStoreTopProducts:  LongTTL,
}

// QueryTypes lists every cached query type.
func QueryTypes() []QueryType {
	return []QueryType{
		QueryStoreSalesRanking,
		QueryDeliveryTimes,
		QueryPopularProducts,
		QueryStoreTopProducts,
	}
}

// ParseQueryType accepts the prefix form, e.g. "delivery_times".
func ParseQueryType(s string) (QueryType, error) {
	q := QueryType(s)
	if _, ok := queryTTLs[q]; !ok {
		return "", fmt.Errorf("%w: unknown query type %q", ErrInvalidInput, s)
	}
	return q, nil
}

// TTL is the fixed time-to-live of entries for q.
func (q QueryType) TTL() time.Duration {
	return queryTTLs[q]
}

// Key derives the cache key for q scoped to region and optional sub-keys.
func (q QueryType) Key(region string, sub ...string) cache.Key {
	return cache.Key{QueryType: string(q), Region: region, Sub: sub}
}

// Every join carries the region so a query never crosses partitions.
const (
	sqlStoreSalesRanking = `
SELECT
    s.id,
    s.name AS store,
    SUM(od.unit_price * od.quantity) AS store_sales
FROM orderprocessing.orderdetails od
JOIN productcatalog.products p
    ON od.product_id = p.id AND od.region = p.region
JOIN sellermanagement.stores s
    ON p.store_id = s.id AND p.region = s.region
WHERE od.region = $1
GROUP BY s.id, s.name
ORDER BY store_sales DESC
LIMIT 10`

	sqlDeliveryTimes = `
SELECT
    EXTRACT(EPOCH FROM (delivered_at::timestamp - shipped_at::timestamp)) / 3600 AS delivery_hours,
    COUNT(*) AS shipments
FROM shippinglogistic.shipments
WHERE delivered_at IS NOT NULL
  AND region = $1
GROUP BY 1
ORDER BY delivery_hours`

	sqlPopularProducts = `
SELECT
    p.id,
    p.title,
    p.price,
    SUM(od.quantity) AS total_sold
FROM orderprocessing.orderdetails od
JOIN productcatalog.products p
    ON od.product_id = p.id AND od.region = p.region
JOIN orderprocessing.orders o
    ON od.order_id = o.id AND od.region = o.region
WHERE od.region = $1
  AND o.created_at >= CURRENT_DATE - INTERVAL '30 days'
GROUP BY p.id, p.title, p.price
ORDER BY total_sold DESC
LIMIT 5`

	sqlStoreTopProducts = `
SELECT
    p.id,
    p.title,
    SUM(od.quantity) AS units_sold,
    SUM(od.unit_price * od.quantity) AS revenue
FROM orderprocessing.orderdetails od
JOIN productcatalog.products p
    ON od.product_id = p.id AND od.region = p.region
WHERE od.region = $1
  AND p.store_id = $2
GROUP BY p.id, p.title
ORDER BY revenue DESC
LIMIT 10`

	sqlProductDetail = `
SELECT
    p.id, p.title, p.description, p.price, p.stock, p.region, p.created_at,
    c.id AS category_id, c.name AS category_name, c.description AS category_description,
    s.id AS store_id, s.name AS store_name, s.is_official AS store_is_official
FROM productcatalog.products p
JOIN productcatalog.categories c
    ON p.categorie_id = c.id
JOIN sellermanagement.stores s
    ON p.store_id = s.id AND p.region = s.region
WHERE p.id = $1 AND p.region = $2`
)

const (
	storesTable        = "sellermanagement.stores"
	productsCollection = "products"
)

// StoreSales is one row of the store sales ranking.
type StoreSales struct {
	ID         int64   `json:"id"`
	Store      string  `json:"store"`
	StoreSales float64 `json:"store_sales"`
}

// DeliveryTime is one bucket of the delivery time distribution.
type DeliveryTime struct {
	DeliveryHours float64 `json:"delivery_hours"`
	Shipments     int64   `json:"shipments"`
}

// PopularProduct is a best seller enriched with its document data.
type PopularProduct struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discounted_price"`
	TotalSold       float64 `json:"total_sold"`
	Image           *string `json:"image"`
}

// StoreTopProduct is one of a store's best sellers by revenue.
type StoreTopProduct struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	UnitsSold float64 `json:"units_sold"`
	Revenue   float64 `json:"revenue"`
}
