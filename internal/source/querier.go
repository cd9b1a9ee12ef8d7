// Package source provides read-only query access to the external Globus
// Oracle system.
package source

import (
	"context"
	"time"
)

// Row is one result row keyed by the source's uppercase column names.
type Row map[string]interface{}

// String reads a column as a string, returning "" for NULL or missing columns.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Float reads a numeric column, returning 0 for NULL or missing columns.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Int reads an integer column, returning 0 for NULL or missing columns.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Time reads a timestamp column, returning the zero time for NULL or missing
// columns.
func (r Row) Time(col string) time.Time {
	if v, ok := r[col].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Bind is one named bind parameter for a source query.
type Bind struct {
	Name  string
	Value interface{}
}

// Querier executes parameterized read-only queries against the source system.
// Implementations return an empty (never nil) slice when no rows match, and
// surface connectivity failures as errors distinct from empty results.
type Querier interface {
	Query(ctx context.Context, query string, binds ...Bind) ([]Row, error)
}
