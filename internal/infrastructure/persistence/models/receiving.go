package models

import (
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
)

// DeliveryNoteModel is the persistence model for a delivery note header
type DeliveryNoteModel struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Etiqueta   string  `gorm:"column:etiqueta;not null"`
	CreatedAt  string  `gorm:"column:created_at"`
	FinishedAt *string `gorm:"column:finished_at"`
	Grupo      *string `gorm:"column:grupo"`
	ArchivedAt *string `gorm:"column:archived_at"`
}

// TableName returns the table name for GORM
func (DeliveryNoteModel) TableName() string {
	return "albaranes"
}

// ToDomain converts the persistence model to a domain DeliveryNote
func (m *DeliveryNoteModel) ToDomain() *receiving.DeliveryNote {
	return &receiving.DeliveryNote{
		ID:         m.ID,
		Label:      m.Etiqueta,
		CreatedAt:  ParseTime(m.CreatedAt),
		FinishedAt: ParseTimePtr(m.FinishedAt),
		Group:      stringValue(m.Grupo),
		ArchivedAt: ParseTimePtr(m.ArchivedAt),
	}
}

// DeliveryNoteModelFromDomain creates a persistence model from a domain DeliveryNote
func DeliveryNoteModelFromDomain(n *receiving.DeliveryNote) *DeliveryNoteModel {
	return &DeliveryNoteModel{
		ID:         n.ID,
		Etiqueta:   n.Label,
		CreatedAt:  FormatTime(n.CreatedAt),
		FinishedAt: FormatTimePtr(n.FinishedAt),
		Grupo:      stringPtr(n.Group),
		ArchivedAt: FormatTimePtr(n.ArchivedAt),
	}
}

// DeliveryLineModel is the persistence model for a delivery note line
type DeliveryLineModel struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	AlbaranID       int64  `gorm:"column:albaran_id;not null"`
	ItemID          *int64 `gorm:"column:item_id"`
	Codigo          string `gorm:"column:codigo;not null"`
	Descripcion     string `gorm:"column:descripcion;not null;default:''"`
	BultosEsperados int    `gorm:"column:bultos_esperados;not null;default:0"`
	BultosRevisados int    `gorm:"column:bultos_revisados;not null;default:0"`
	Falta           int    `gorm:"column:falta;not null;default:0"`
}

// TableName returns the table name for GORM
func (DeliveryLineModel) TableName() string {
	return "albaran_items"
}

// ToDomain converts the persistence model to a domain DeliveryLine
func (m *DeliveryLineModel) ToDomain() *receiving.DeliveryLine {
	return &receiving.DeliveryLine{
		ID:          m.ID,
		NoteID:      m.AlbaranID,
		ItemID:      m.ItemID,
		Code:        m.Codigo,
		Description: m.Descripcion,
		Expected:    m.BultosEsperados,
		Counted:     m.BultosRevisados,
		Shortage:    m.Falta,
	}
}

// DeliveryLineModelFromDomain creates a persistence model from a domain DeliveryLine
func DeliveryLineModelFromDomain(l *receiving.DeliveryLine) *DeliveryLineModel {
	return &DeliveryLineModel{
		ID:              l.ID,
		AlbaranID:       l.NoteID,
		ItemID:          l.ItemID,
		Codigo:          l.Code,
		Descripcion:     l.Description,
		BultosEsperados: l.Expected,
		BultosRevisados: l.Counted,
		Falta:           l.Shortage,
	}
}

// NoteOverviewRow is the scan target of the note listing query
type NoteOverviewRow struct {
	DeliveryNoteModel
	LineCount     int `gorm:"column:line_count"`
	ExpectedTotal int `gorm:"column:expected_total"`
	CountedTotal  int `gorm:"column:counted_total"`
}

// ToDomain converts the row to a domain NoteOverview
func (r *NoteOverviewRow) ToDomain() receiving.NoteOverview {
	return receiving.NoteOverview{
		Note:          *r.DeliveryNoteModel.ToDomain(),
		LineCount:     r.LineCount,
		ExpectedTotal: r.ExpectedTotal,
		CountedTotal:  r.CountedTotal,
	}
}
