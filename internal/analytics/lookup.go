package analytics

import (
	"context"
	"fmt"
	"time"
)

const (
	sqlStoreDetail = `
SELECT id, name, description, is_official, region, created_at
FROM sellermanagement.stores
WHERE id = $1 AND region = $2`

	// Orders containing at least one product of the store, with shipment,
	// payment and per-line detail. Ordered by order id.
	sqlStoreOrders = `
WITH order_base AS (
    SELECT
        o.id AS order_id,
        o.user_id,
        o.total_price,
        o.created_at,
        o.region,
        s.id AS shipment_id,
        s.shipment_status_id,
        ss.status_name AS shipment_status,
        pm.id AS payment_id,
        pm.payment_status_id,
        ps.status_name AS payment_status
    FROM orderprocessing.orders o
    JOIN shippinglogistic.shipments s
        ON o.id = s.order_id AND o.region = s.region
    JOIN shippinglogistic.shipmentstatuses ss
        ON s.shipment_status_id = ss.id
    JOIN paymentmanagement.payments pm
        ON o.id = pm.order_id AND o.region = pm.region
    JOIN paymentmanagement.paymentstatuses ps
        ON pm.payment_status_id = ps.id
    WHERE EXISTS (
        SELECT 1
        FROM orderprocessing.orderdetails od
        JOIN productcatalog.products p
            ON od.product_id = p.id AND od.region = p.region
        WHERE od.order_id = o.id
          AND od.region = o.region
          AND p.store_id = $1
    )
    AND o.region = $2
)
SELECT
    ob.*,
    json_agg(json_build_object(
        'product_id', p.id,
        'product_name', p.title,
        'quantity', od.quantity,
        'price_per_unit', od.unit_price
    )) AS order_details
FROM order_base ob
JOIN orderprocessing.orderdetails od
    ON ob.order_id = od.order_id AND ob.region = od.region
JOIN productcatalog.products p
    ON od.product_id = p.id AND od.region = p.region
GROUP BY
    ob.order_id, ob.user_id, ob.total_price, ob.created_at, ob.region,
    ob.shipment_id, ob.shipment_status_id, ob.shipment_status,
    ob.payment_id, ob.payment_status_id, ob.payment_status
ORDER BY ob.order_id ASC`
)

const (
	questionsCollection     = "Q&A"
	conversationsCollection = "conversations"
)

// Document is a schemaless record returned as-is to the caller.
type Document = map[string]any

// StoreDetail is a store row of one region.
type StoreDetail struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsOfficial  bool      `json:"is_official"`
	Region      string    `json:"region"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderLine struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int64   `json:"quantity"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// StoreOrder is an order that contains products of one store.
type StoreOrder struct {
	OrderID          int64       `json:"order_id"`
	UserID           int64       `json:"user_id"`
	TotalPrice       float64     `json:"total_price"`
	CreatedAt        time.Time   `json:"created_at"`
	Region           string      `json:"region"`
	ShipmentID       int64       `json:"shipment_id"`
	ShipmentStatusID int64       `json:"shipment_status_id"`
	ShipmentStatus   string      `json:"shipment_status"`
	PaymentID        int64       `json:"payment_id"`
	PaymentStatusID  int64       `json:"payment_status_id"`
	PaymentStatus    string      `json:"payment_status"`
	OrderDetails     []OrderLine `json:"order_details"`
}

// Store returns the store storeID if it belongs to region.
func (s *Service) Store(ctx context.Context, storeID int64, region string) (*StoreDetail, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if err := validateID("store_id", storeID); err != nil {
		return nil, err
	}

	rows, err := s.relational.Aggregate(ctx, sqlStoreDetail, storeID, region)
	if err != nil {
		return nil, fmt.Errorf("store %d: %w", storeID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store %d in region %q: %w", storeID, region, ErrNotFound)
	}

	var store StoreDetail
	if err := decode(NormalizeDecimals(rows[0]), &store); err != nil {
		return nil, fmt.Errorf("decode store %d: %w", storeID, err)
	}
	return &store, nil
}

// StoreOrders lists the orders of region that include products of storeID.
func (s *Service) StoreOrders(ctx context.Context, storeID int64, region string) ([]StoreOrder, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if err := validateID("store_id", storeID); err != nil {
		return nil, err
	}

	ok, err := s.relational.ExistsInRegion(ctx, storesTable, storeID, region)
	if err != nil {
		return nil, fmt.Errorf("store %d: %w", storeID, err)
	}
	if !ok {
		return nil, fmt.Errorf("store %d in region %q: %w", storeID, region, ErrNotFound)
	}

	rows, err := s.relational.Aggregate(ctx, sqlStoreOrders, storeID, region)
	if err != nil {
		return nil, fmt.Errorf("orders of store %d: %w", storeID, err)
	}
	orders, err := decodeRows[StoreOrder](normalizeRows(rows))
	if err != nil {
		return nil, fmt.Errorf("orders of store %d: %w", storeID, err)
	}
	return orders, nil
}

// Question returns the Q&A document of productID in region.
func (s *Service) Question(ctx context.Context, productID int64, region string) (Document, error) {
	if err := validateID("product_id", productID); err != nil {
		return nil, err
	}
	return s.findDocument(ctx, questionsCollection, "product_id", productID, region)
}

// Conversation returns the buyer/seller conversation of orderID in region.
func (s *Service) Conversation(ctx context.Context, orderID int64, region string) (Document, error) {
	if err := validateID("order_id", orderID); err != nil {
		return nil, err
	}
	return s.findDocument(ctx, conversationsCollection, "order_id", orderID, region)
}

func (s *Service) findDocument(ctx context.Context, collection, field string, id int64, region string) (Document, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}

	doc, err := s.documents.FindOne(ctx, collection, map[string]any{
		field:    id,
		"region": region,
	})
	if err != nil {
		return nil, fmt.Errorf("find %s %s=%d: %w", collection, field, id, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("no %s document for %s %d in region %q: %w", collection, field, id, region, ErrNotFound)
	}
	return NormalizeDecimals(doc).(map[string]any), nil
}
