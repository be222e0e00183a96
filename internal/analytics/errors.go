package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an entity that is absent or belongs to another region.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks scoping parameters that fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// OriginError wraps a relational or document store failure during aggregation.
// Nothing is cached when one is returned.
type OriginError struct {
	QueryType QueryType
	Err       error
}

func (e *OriginError) Error() string {
	return fmt.Sprintf("origin %s: %v", e.QueryType, e.Err)
}

func (e *OriginError) Unwrap() error {
	return e.Err
}
