package analytics

import (
	"context"
	"fmt"
	"time"
)

// Category is the product category embedded in a ProductDetail.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// StoreRef is the owning store embedded in a ProductDetail.
type StoreRef struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	IsOfficial bool   `json:"is_official"`
}

// Image is a product picture. ID is its position in the stored image list,
// so entries without a URL leave gaps.
type Image struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// ProductDetail merges a product row with its document. It is never cached.
type ProductDetail struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Price           float64    `json:"price"`
	DiscountedPrice float64    `json:"discounted_price"`
	Stock           int64      `json:"stock"`
	Region          string     `json:"region"`
	CreatedAt       time.Time  `json:"created_at"`
	Category        Category   `json:"category"`
	Store           StoreRef   `json:"store"`
	Images          []Image    `json:"images"`
	ActiveDiscounts []Discount `json:"active_discounts"`
}

type productRow struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description"`
	Price               float64   `json:"price"`
	Stock               int64     `json:"stock"`
	Region              string    `json:"region"`
	CreatedAt           time.Time `json:"created_at"`
	CategoryID          int64     `json:"category_id"`
	CategoryName        string    `json:"category_name"`
	CategoryDescription *string   `json:"category_description"`
	StoreID             int64     `json:"store_id"`
	StoreName           string    `json:"store_name"`
	StoreIsOfficial     bool      `json:"store_is_official"`
}

// Product returns one product of region with its images and active discount.
func (s *Service) Product(ctx context.Context, productID int64, region string) (*ProductDetail, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if err := validateID("product_id", productID); err != nil {
		return nil, err
	}

	rows, err := s.relational.Aggregate(ctx, sqlProductDetail, productID, region)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", productID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product %d in region %q: %w", productID, region, ErrNotFound)
	}

	var row productRow
	if err := decode(NormalizeDecimals(rows[0]), &row); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", productID, err)
	}

	doc, err := s.lookupProduct(ctx, productID, region)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Price:           row.Price,
		DiscountedPrice: row.Price,
		Stock:           row.Stock,
		Region:          row.Region,
		CreatedAt:       row.CreatedAt,
		Category: Category{
			ID:          row.CategoryID,
			Name:        row.CategoryName,
			Description: row.CategoryDescription,
		},
		Store: StoreRef{
			ID:         row.StoreID,
			Name:       row.StoreName,
			IsOfficial: row.StoreIsOfficial,
		},
		Images:          []Image{},
		ActiveDiscounts: []Discount{},
	}

	if doc == nil {
		return detail, nil
	}

	for idx, img := range doc.Images {
		if img.URL == "" {
			continue
		}
		detail.Images = append(detail.Images, Image{ID: idx, URL: img.URL})
	}

	now := s.clock.Now()
	if d := doc.Discount.toDiscount(); d.AppliesOn(now) {
		detail.ActiveDiscounts = append(detail.ActiveDiscounts, *d)
		detail.DiscountedPrice = DiscountedPrice(row.Price, d, now)
	}
	return detail, nil
}
