package models

import (
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
)

// BalanceTable returns the balance table backing a book
func BalanceTable(book ledger.Book) string {
	if book == ledger.BookManual {
		return "manual_saldo_global"
	}
	return "saldo_global"
}

// MovementTable returns the movement table backing a book
func MovementTable(book ledger.Book) string {
	if book == ledger.BookManual {
		return "manual_saldo_movimientos"
	}
	return "saldo_movimientos"
}

// BalanceModel is the persistence model for a (group, code) balance.
// Both books share the layout; the table is picked per query.
type BalanceModel struct {
	Grupo       string  `gorm:"column:grupo;primaryKey"`
	Codigo      string  `gorm:"column:codigo;primaryKey"`
	Descripcion *string `gorm:"column:descripcion"`
	Saldo       int     `gorm:"column:saldo;not null;default:0"`
	UpdatedAt   string  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (BalanceModel) TableName() string {
	return "saldo_global"
}

// ToDomain converts the persistence model to a domain Balance
func (m *BalanceModel) ToDomain() *ledger.Balance {
	return &ledger.Balance{
		Group:       m.Grupo,
		Code:        m.Codigo,
		Description: stringValue(m.Descripcion),
		Saldo:       m.Saldo,
		UpdatedAt:   ParseTime(m.UpdatedAt),
	}
}

// BalanceModelFromDomain creates a persistence model from a domain Balance
func BalanceModelFromDomain(b *ledger.Balance) *BalanceModel {
	return &BalanceModel{
		Grupo:       b.Group,
		Codigo:      b.Code,
		Descripcion: &b.Description,
		Saldo:       b.Saldo,
		UpdatedAt:   FormatTime(b.UpdatedAt),
	}
}

// MovementModel is the persistence model for a ledger movement.
// The manual movement table has no albaran_id column.
type MovementModel struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement"`
	AlbaranID   *int64  `gorm:"column:albaran_id"`
	Etiqueta    *string `gorm:"column:etiqueta"`
	Grupo       string  `gorm:"column:grupo;not null"`
	Codigo      string  `gorm:"column:codigo;not null"`
	Descripcion *string `gorm:"column:descripcion"`
	Delta       int     `gorm:"column:delta;not null"`
	CreatedAt   string  `gorm:"column:created_at"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "saldo_movimientos"
}

// ToDomain converts the persistence model to a domain Movement
func (m *MovementModel) ToDomain() *ledger.Movement {
	return &ledger.Movement{
		ID:          m.ID,
		NoteID:      m.AlbaranID,
		Label:       stringValue(m.Etiqueta),
		Group:       m.Grupo,
		Code:        m.Codigo,
		Description: stringValue(m.Descripcion),
		Delta:       m.Delta,
		CreatedAt:   ParseTime(m.CreatedAt),
	}
}

// MovementModelFromDomain creates a persistence model from a domain Movement
func MovementModelFromDomain(mv *ledger.Movement) *MovementModel {
	return &MovementModel{
		ID:          mv.ID,
		AlbaranID:   mv.NoteID,
		Etiqueta:    stringPtr(mv.Label),
		Grupo:       mv.Group,
		Codigo:      mv.Code,
		Descripcion: &mv.Description,
		Delta:       mv.Delta,
		CreatedAt:   FormatTime(mv.CreatedAt),
	}
}

// CodeNetRow is the scan target of movement aggregation queries
type CodeNetRow struct {
	Grupo  string `gorm:"column:grupo"`
	Codigo string `gorm:"column:codigo"`
	Net    int    `gorm:"column:net"`
}

// GroupSummaryRow is the scan target of balance aggregation queries
type GroupSummaryRow struct {
	Grupo  string `gorm:"column:grupo"`
	Items  int    `gorm:"column:items"`
	Faltan int    `gorm:"column:faltan"`
	Sobran int    `gorm:"column:sobran"`
}
