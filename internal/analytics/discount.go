package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount is the descriptor stored alongside a product document.
type Discount struct {
	Percentage float64    `json:"percentage"`
	Active     bool       `json:"isActive"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// AppliesOn reports whether d adjusts prices on the calendar day of now.
// Each bound of the validity window is inclusive and optional.
func (d *Discount) AppliesOn(now time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if d.Percentage < 0 || d.Percentage > 100 {
		return false
	}

	today := civilDate(now)
	if d.StartDate != nil && today.Before(civilDate(*d.StartDate)) {
		return false
	}
	if d.EndDate != nil && today.After(civilDate(*d.EndDate)) {
		return false
	}
	return true
}

// DiscountedPrice returns price reduced by d, truncated to whole currency
// units, when d applies on now. Otherwise it returns price unchanged.
func DiscountedPrice(price float64, d *Discount, now time.Time) float64 {
	if !d.AppliesOn(now) {
		return price
	}
	factor := hundred.Sub(decimal.NewFromFloat(d.Percentage)).Div(hundred)
	return decimal.NewFromFloat(price).Mul(factor).Truncate(0).InexactFloat64()
}

// civilDate drops the clock time, keeping the date as written in t's location.
func civilDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
