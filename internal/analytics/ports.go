package analytics

import "context"

// Row is one relational result row keyed by column name.
type Row = map[string]any

// Relational executes parameterized queries against the partitioned schema.
// Scoping values are always passed as bound arguments, never interpolated.
type Relational interface {
	Aggregate(ctx context.Context, query string, args ...any) ([]Row, error)
	ExistsInRegion(ctx context.Context, table string, id int64, region string) (bool, error)
}

// Documents looks up schemaless documents. FindOne returns (nil, nil) when
// nothing matches; the document identifier is already rendered as a string.
type Documents interface {
	FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error)
	FindMany(ctx context.Context, collection string, filter map[string]any, opts FindOptions) ([]map[string]any, error)
}

// FindOptions orders and bounds a FindMany. An empty SortField keeps the
// store's natural order; Limit <= 0 means no limit.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int64
}
