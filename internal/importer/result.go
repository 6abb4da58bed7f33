// Package importer converts delimited text sources into validated domain
// records. Rows are validated independently: a bad row is reported and the
// batch continues. The package never persists anything; callers hand accepted
// records to the ordinary create operations one at a time.
package importer

import "fmt"

// RowError describes why a single row was rejected. Row numbers are 1-based,
// counting from the first data row; a header row is never counted.
type RowError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, %s: %q - %s", e.Row, e.Field, e.Value, e.Reason)
}

// Result holds the outcome of validating one source: the accepted records in
// input order, the per-row errors, and the number of data rows seen.
type Result[T any] struct {
	Records   []T
	Errors    []RowError
	TotalRows int
}

// SuccessCount returns the number of accepted records.
func (r *Result[T]) SuccessCount() int { return len(r.Records) }

// ErrorCount returns the number of rejected rows.
func (r *Result[T]) ErrorCount() int { return len(r.Errors) }

// HasErrors reports whether any row was rejected.
func (r *Result[T]) HasErrors() bool { return len(r.Errors) > 0 }
