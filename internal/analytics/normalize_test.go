package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func containsDecimal(v any) bool {
	switch t := v.(type) {
	case decimal.Decimal, *decimal.Decimal, decimal.NullDecimal:
		return true
	case map[string]any:
		for _, e := range t {
			if containsDecimal(e) {
				return true
			}
		}
	case []map[string]any:
		for _, e := range t {
			if containsDecimal(e) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsDecimal(e) {
				return true
			}
		}
	}
	return false
}

func TestNormalizeDecimals(t *testing.T) {
	d := decimal.RequireFromString("12.5")
	created := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	input := []map[string]any{
		{
			"id":          int64(1),
			"store":       "Tienda Uno",
			"store_sales": decimal.RequireFromString("1234567.89"),
			"ptr":         &d,
			"null":        decimal.NullDecimal{},
			"nested": map[string]any{
				"list":    []any{decimal.NewFromInt(3), "x", true, nil},
				"created": created,
			},
		},
	}

	got := NormalizeDecimals(input)

	rows, ok := got.([]map[string]any)
	if !ok {
		t.Fatalf("container type not preserved: %T", got)
	}
	if containsDecimal(got) {
		t.Fatalf("decimal survived normalization: %#v", got)
	}

	row := rows[0]
	if row["store_sales"] != 1234567.89 {
		t.Fatalf("store_sales = %#v", row["store_sales"])
	}
	if row["ptr"] != 12.5 {
		t.Fatalf("ptr = %#v", row["ptr"])
	}
	if row["null"] != nil {
		t.Fatalf("invalid NullDecimal should become nil, got %#v", row["null"])
	}
	if row["id"] != int64(1) || row["store"] != "Tienda Uno" {
		t.Fatalf("non-decimal scalars changed: %#v", row)
	}

	nested := row["nested"].(map[string]any)
	wantList := []any{float64(3), "x", true, nil}
	if !reflect.DeepEqual(nested["list"], wantList) {
		t.Fatalf("list = %#v, want %#v", nested["list"], wantList)
	}
	if nested["created"] != created {
		t.Fatalf("time value changed: %#v", nested["created"])
	}

	// input must be left untouched
	if _, ok := input[0]["store_sales"].(decimal.Decimal); !ok {
		t.Fatalf("input was mutated")
	}
}

func TestNormalizeDecimalsIdempotent(t *testing.T) {
	input := map[string]any{
		"a": decimal.RequireFromString("0.1"),
		"b": []any{map[string]any{"c": decimal.RequireFromString("99.99")}},
	}

	once := NormalizeDecimals(input)
	twice := NormalizeDecimals(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalization is not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestNormalizeRowsNil(t *testing.T) {
	if got := normalizeRows(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", got)
	}
}
