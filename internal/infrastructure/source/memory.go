package source

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Sheet is a table held in memory: a header row and text cells
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// MemorySource serves tables that were read fully into memory.
// Workbook and CSV sources are loaded into one.
type MemorySource struct {
	name   string
	sheets map[string]*Sheet
}

// NewMemorySource creates a source over the given sheets
func NewMemorySource(name string, sheets ...Sheet) *MemorySource {
	s := &MemorySource{name: name, sheets: make(map[string]*Sheet, len(sheets))}
	for i := range sheets {
		sheet := sheets[i]
		s.sheets[strings.ToLower(sheet.Name)] = &sheet
	}
	return s
}

// Name returns the source name
func (s *MemorySource) Name() string {
	return s.name
}

// Tables lists the sheet names, sorted
func (s *MemorySource) Tables(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.sheets))
	for _, sheet := range s.sheets {
		out = append(out, sheet.Name)
	}
	sort.Strings(out)
	return out, nil
}

// ReadTable projects the requested columns of a sheet
func (s *MemorySource) ReadTable(ctx context.Context, req TableRequest) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheet, ok := s.sheets[strings.ToLower(req.Name)]
	if !ok {
		tables, _ := s.Tables(ctx)
		return nil, &ShapeError{Required: []string{req.Name}, Found: tables}
	}

	cols, err := columnIndex(sheet.Name, sheet.Header, req)
	if err != nil {
		return nil, err
	}
	position := make(map[string]int, len(sheet.Header))
	for i, h := range sheet.Header {
		if _, dup := position[h]; !dup {
			position[h] = i
		}
	}

	table := &Table{Name: sheet.Name, Columns: requestedColumns(req, cols)}
	for _, row := range sheet.Rows {
		if blankRow(row) {
			continue
		}
		rec := make(Record, len(cols))
		for want, actual := range cols {
			if i := position[actual]; i < len(row) {
				rec[want] = strings.TrimSpace(row[i])
			} else {
				rec[want] = ""
			}
		}
		table.Rows = append(table.Rows, rec)
	}

	if _, ok := cols[req.OrderBy]; ok && req.OrderBy != "" {
		sortNumeric(table.Rows, req.OrderBy)
	}
	return table, nil
}

// Close is a no-op for memory sources
func (s *MemorySource) Close() error {
	return nil
}

// requestedColumns lists the resolved request columns in request order
func requestedColumns(req TableRequest, cols map[string]string) []string {
	out := make([]string, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for _, group := range [][]string{req.Columns, req.Optional, {req.OrderBy}} {
		for _, c := range group {
			if _, ok := cols[c]; ok && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// sortNumeric orders rows by a numeric column; unparsable values sort last
func sortNumeric(rows []Record, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, aErr := decimal.NewFromString(rows[i][column])
		b, bErr := decimal.NewFromString(rows[j][column])
		switch {
		case aErr != nil:
			return false
		case bErr != nil:
			return true
		default:
			return a.LessThan(b)
		}
	})
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
