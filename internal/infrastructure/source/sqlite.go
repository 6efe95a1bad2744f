package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLSource reads tables from an external SQLite database
type SQLSource struct {
	name string
	db   *gorm.DB
}

// OpenSQLite opens an SQLite file read-only
func OpenSQLite(name, path string) (*SQLSource, error) {
	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return NewSQLSource(name, db), nil
}

// NewSQLSource wraps an already opened database
func NewSQLSource(name string, db *gorm.DB) *SQLSource {
	return &SQLSource{name: name, db: db}
}

// Name returns the source name
func (s *SQLSource) Name() string {
	return s.name
}

// Tables lists the user tables of the database, sorted
func (s *SQLSource) Tables(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").
		Scan(&names).Error; err != nil {
		return nil, &IOError{Op: "list tables of", Path: s.name, Err: err}
	}
	return names, nil
}

// ReadTable reads the requested columns of a table
func (s *SQLSource) ReadTable(ctx context.Context, req TableRequest) (*Table, error) {
	db := s.db.WithContext(ctx)

	var available []string
	if err := db.Raw("SELECT name FROM pragma_table_info(?)", req.Name).
		Scan(&available).Error; err != nil {
		return nil, &IOError{Op: "describe table " + req.Name + " of", Path: s.name, Err: err}
	}
	if len(available) == 0 {
		tables, err := s.Tables(ctx)
		if err != nil {
			return nil, err
		}
		return nil, &ShapeError{Required: []string{req.Name}, Found: tables}
	}

	cols, err := columnIndex(req.Name, available, req)
	if err != nil {
		return nil, err
	}
	wanted := requestedColumns(req, cols)
	selects := make([]string, len(wanted))
	for i, c := range wanted {
		selects[i] = quoteIdent(cols[c])
	}

	sql := "SELECT " + strings.Join(selects, ", ") + " FROM " + quoteIdent(req.Name)
	if actual, ok := cols[req.OrderBy]; ok && req.OrderBy != "" {
		sql += " ORDER BY " + quoteIdent(actual)
	}

	rows, err := db.Raw(sql).Rows()
	if err != nil {
		return nil, &IOError{Op: "read table " + req.Name + " of", Path: s.name, Err: err}
	}
	defer rows.Close()

	table := &Table{Name: req.Name, Columns: wanted}
	values := make([]any, len(wanted))
	ptrs := make([]any, len(wanted))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &IOError{Op: "read table " + req.Name + " of", Path: s.name, Err: err}
		}
		rec := make(Record, len(wanted))
		for i, c := range wanted {
			rec[c] = strings.TrimSpace(cellText(values[i]))
		}
		table.Rows = append(table.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOError{Op: "read table " + req.Name + " of", Path: s.name, Err: err}
	}
	return table, nil
}

// Close closes the underlying database
func (s *SQLSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// cellText renders a scanned cell the way it reads in the source
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
