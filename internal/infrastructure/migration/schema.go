package migration

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// columnInfo is a row of PRAGMA table_info
type columnInfo struct {
	Name string `gorm:"column:name"`
	PK   int    `gorm:"column:pk"`
}

// tableColumns returns the columns of table keyed by name
func tableColumns(tx *gorm.DB, table string) (map[string]columnInfo, error) {
	var rows []columnInfo
	if err := tx.Raw("SELECT name, pk FROM pragma_table_info(?)", table).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	out := make(map[string]columnInfo, len(rows))
	for _, r := range rows {
		out[r.Name] = r
	}
	return out, nil
}

// primaryKey returns the primary key columns of table in declaration order
func primaryKey(tx *gorm.DB, table string) ([]string, error) {
	var rows []columnInfo
	err := tx.Raw("SELECT name, pk FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names, nil
}

// ensureColumn adds column to table unless it already exists
func ensureColumn(tx *gorm.DB, table, column, definition string) error {
	cols, err := tableColumns(tx, table)
	if err != nil {
		return err
	}
	if _, ok := cols[column]; ok {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// execAll runs statements in order, stopping at the first failure
func execAll(tx *gorm.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// columnOr returns column when present, otherwise the fallback expression
func columnOr(cols map[string]columnInfo, column, fallback string) string {
	if _, ok := cols[column]; ok {
		return column
	}
	return fallback
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
