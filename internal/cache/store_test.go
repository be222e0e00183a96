package cache

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"region only", Key{QueryType: "store_sales_ranking", Region: "Colombia"}, "store_sales_ranking:Colombia"},
		{"with sub key", Key{QueryType: "store_top_products", Region: "Peru", Sub: []string{"42"}}, "store_top_products:Peru:42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.key.TimestampKey(); got != tt.want+":timestamp" {
				t.Fatalf("TimestampKey() = %q", got)
			}
		})
	}
}

func TestKeyDeterminism(t *testing.T) {
	a := Key{QueryType: "delivery_times", Region: "Chile"}
	b := Key{QueryType: "delivery_times", Region: "Chile"}
	c := Key{QueryType: "delivery_times", Region: "Colombia"}

	if a.String() != b.String() {
		t.Fatalf("equal tuples produced different keys")
	}
	if a.String() == c.String() {
		t.Fatalf("different regions produced the same key")
	}
}

func TestParseKey(t *testing.T) {
	parts, ok := parseKey("store_top_products:Peru:42:timestamp")
	if !ok || parts.queryType != "store_top_products" || parts.region != "Peru" {
		t.Fatalf("unexpected parse: %+v ok=%v", parts, ok)
	}
	if _, ok := parseKey("popular_products"); ok {
		t.Fatalf("bare prefix should not parse as a key")
	}
}
