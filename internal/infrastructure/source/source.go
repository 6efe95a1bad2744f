// Package source reads the external tabular stores a catalog or a delivery
// listing is imported from. A source may be an SQLite database, an Excel
// workbook or a CSV file; all of them are exposed as named tables of text cells.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Record is one row of a table keyed by the requested column names
type Record map[string]string

// Table is a table read from a source
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// TableRequest selects the columns of a table to read.
// Column names are matched case-insensitively.
type TableRequest struct {
	Name     string
	Columns  []string // required columns
	Optional []string // read when present, empty otherwise
	OrderBy  string   // numeric ordering column, ignored when absent
}

// Source is an opened external tabular store
type Source interface {
	// Name identifies the source in logs and import history
	Name() string
	// Tables lists the table names the source exposes, sorted
	Tables(ctx context.Context) ([]string, error)
	// ReadTable reads the requested columns of a table
	ReadTable(ctx context.Context, req TableRequest) (*Table, error)
	// Close releases the source
	Close() error
}

// Opener supplies a readable source or reports that the user canceled the pick
type Opener interface {
	// Name identifies the source before it is opened
	Name() string
	// Open opens the source; a dismissed picker yields shared.ErrCanceled
	Open(ctx context.Context) (Source, error)
}

// ShapeError reports a source that lacks required tables or columns
type ShapeError struct {
	Table    string   // empty when tables are missing
	Required []string // what was missing
	Found    []string // tables (or columns of Table) actually present
}

// Error implements the error interface
func (e *ShapeError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("missing required tables: %s (found: %s)",
			strings.Join(e.Required, ", "), strings.Join(e.Found, ", "))
	}
	return fmt.Sprintf("table %s is missing columns: %s (found: %s)",
		e.Table, strings.Join(e.Required, ", "), strings.Join(e.Found, ", "))
}

// Is makes ShapeError match shared.ErrSourceShape
func (e *ShapeError) Is(target error) bool {
	return target == shared.ErrSourceShape
}

// IOError wraps a failure reading or copying a source file
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying failure
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes IOError match shared.ErrIO
func (e *IOError) Is(target error) bool {
	return target == shared.ErrIO
}

// RequireTables verifies that src exposes every required table, ignoring case.
// It returns the actual names keyed by the required ones.
func RequireTables(ctx context.Context, src Source, required ...string) (map[string]string, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, err
	}
	byFold := make(map[string]string, len(tables))
	for _, t := range tables {
		byFold[strings.ToLower(t)] = t
	}

	resolved := make(map[string]string, len(required))
	var missing []string
	for _, r := range required {
		actual, ok := byFold[strings.ToLower(r)]
		if !ok {
			missing = append(missing, r)
			continue
		}
		resolved[r] = actual
	}
	if len(missing) > 0 {
		return nil, &ShapeError{Required: missing, Found: tables}
	}
	return resolved, nil
}

// columnIndex resolves requested columns against the available ones
func columnIndex(table string, available []string, req TableRequest) (map[string]string, error) {
	byFold := make(map[string]string, len(available))
	for _, c := range available {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, dup := byFold[key]; !dup {
			byFold[key] = c
		}
	}

	resolved := make(map[string]string, len(req.Columns)+len(req.Optional))
	var missing []string
	for _, c := range req.Columns {
		actual, ok := byFold[strings.ToLower(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		resolved[c] = actual
	}
	if len(missing) > 0 {
		found := append([]string(nil), available...)
		sort.Strings(found)
		return nil, &ShapeError{Table: table, Required: missing, Found: found}
	}
	for _, c := range req.Optional {
		if actual, ok := byFold[strings.ToLower(c)]; ok {
			resolved[c] = actual
		}
	}
	if req.OrderBy != "" {
		if actual, ok := byFold[strings.ToLower(req.OrderBy)]; ok {
			resolved[req.OrderBy] = actual
		}
	}
	return resolved, nil
}
