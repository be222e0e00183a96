package analytics

import (
	"github.com/shopspring/decimal"
)

// NormalizeDecimals returns a copy of v in which every arbitrary-precision
// decimal has been replaced by its nearest float64. Maps, slices and element
// order are preserved; every other scalar passes through untouched.
// Normalizing an already normalized value yields an equal value.
func NormalizeDecimals(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.InexactFloat64()
	case *decimal.Decimal:
		if t == nil {
			return nil
		}
		return t.InexactFloat64()
	case decimal.NullDecimal:
		if !t.Valid {
			return nil
		}
		return t.Decimal.InexactFloat64()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NormalizeDecimals(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = NormalizeDecimals(e).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeDecimals(e)
		}
		return out
	default:
		return v
	}
}

// normalizeRows is NormalizeDecimals specialised to relational result sets.
func normalizeRows(rows []Row) []Row {
	if rows == nil {
		return []Row{}
	}
	return NormalizeDecimals(rows).([]map[string]any)
}
