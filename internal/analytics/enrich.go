package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nexusbuy-analytics/pkg/logging/logging"
)

// productDocument is the part of a "products" document the service reads.
type productDocument struct {
	Images   []productImage    `json:"images"`
	Discount *discountDocument `json:"discount"`
}

type productImage struct {
	URL string `json:"url"`
}

type discountDocument struct {
	Percentage float64   `json:"percentage"`
	IsActive   bool      `json:"isActive"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

func (d *discountDocument) toDiscount() *Discount {
	if d == nil {
		return nil
	}
	out := &Discount{Percentage: d.Percentage, Active: d.IsActive}
	if !d.StartDate.IsZero() {
		start := d.StartDate
		out.StartDate = &start
	}
	if !d.EndDate.IsZero() {
		end := d.EndDate
		out.EndDate = &end
	}
	return out
}

// firstImage returns the URL of the first listed image, if it has one.
func (d *productDocument) firstImage() *string {
	if d == nil || len(d.Images) == 0 || d.Images[0].URL == "" {
		return nil
	}
	url := d.Images[0].URL
	return &url
}

// lookupProduct fetches at most one document for id in region. The images
// and the discount are decoded independently; a part that cannot be decoded
// is logged and left empty.
func (s *Service) lookupProduct(ctx context.Context, id int64, region string) (*productDocument, error) {
	raw, err := s.documents.FindOne(ctx, productsCollection, map[string]any{
		"_id":    id,
		"region": region,
	})
	if err != nil {
		return nil, fmt.Errorf("find product document %d: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}

	norm, _ := NormalizeDecimals(raw).(map[string]any)
	logger := logging.L(ctx).With(zap.Int64("product_id", id), zap.String("region", region))

	var doc productDocument
	if images, ok := norm["images"]; ok && images != nil {
		if err := decode(images, &doc.Images); err != nil {
			logger.Warn("product_images_decode_error", zap.Error(err))
			doc.Images = nil
		}
	}
	if discount, ok := norm["discount"]; ok && discount != nil {
		var d discountDocument
		if err := decode(discount, &d); err != nil {
			logger.Warn("product_discount_decode_error", zap.Error(err))
		} else {
			doc.Discount = &d
		}
	}
	return &doc, nil
}

type popularRow struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	TotalSold float64 `json:"total_sold"`
}

// enrichPopular looks up one document per row, sequentially.
func (s *Service) enrichPopular(ctx context.Context, region string, rows []Row) ([]PopularProduct, error) {
	records, err := decodeRows[popularRow](rows)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]PopularProduct, 0, len(records))
	for _, r := range records {
		doc, err := s.lookupProduct(ctx, r.ID, region)
		if err != nil {
			return nil, err
		}

		var discount *Discount
		if doc != nil {
			discount = doc.Discount.toDiscount()
		}

		out = append(out, PopularProduct{
			ID:              r.ID,
			Title:           r.Title,
			Price:           r.Price,
			DiscountedPrice: DiscountedPrice(r.Price, discount, now),
			TotalSold:       r.TotalSold,
			Image:           doc.firstImage(),
		})
	}
	return out, nil
}
