package models

import (
	"encoding/json"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/bulk"
	"github.com/google/uuid"
)

// ImportHistoryModel is the persistence model for the ImportHistory domain entity.
type ImportHistoryModel struct {
	ID           string  `gorm:"column:id;primaryKey"`
	Kind         string  `gorm:"column:kind;not null"`
	SourceNames  string  `gorm:"column:source_names;not null;default:'[]'"`
	TotalRows    int     `gorm:"column:total_rows;not null;default:0"`
	SuccessRows  int     `gorm:"column:success_rows;not null;default:0"`
	ErrorRows    int     `gorm:"column:error_rows;not null;default:0"`
	SkippedRows  int     `gorm:"column:skipped_rows;not null;default:0"`
	Status       string  `gorm:"column:status;not null;default:'pending'"`
	Message      string  `gorm:"column:error;not null;default:''"`
	ErrorDetails string  `gorm:"column:error_details;not null;default:'[]'"`
	CreatedAt    string  `gorm:"column:created_at;not null"`
	StartedAt    *string `gorm:"column:started_at"`
	CompletedAt  *string `gorm:"column:completed_at"`
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_history"
}

// ToDomain converts the persistence model to a domain ImportHistory entity.
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	id, _ := uuid.Parse(m.ID)
	history := &bulk.ImportHistory{
		ID:          id,
		Kind:        bulk.ImportKind(m.Kind),
		TotalRows:   m.TotalRows,
		SuccessRows: m.SuccessRows,
		ErrorRows:   m.ErrorRows,
		SkippedRows: m.SkippedRows,
		Status:      bulk.ImportStatus(m.Status),
		Message:     m.Message,
		CreatedAt:   ParseTime(m.CreatedAt),
		StartedAt:   ParseTimePtr(m.StartedAt),
		CompletedAt: ParseTimePtr(m.CompletedAt),
	}

	_ = json.Unmarshal([]byte(m.SourceNames), &history.SourceNames)
	if m.ErrorDetails != "" {
		_ = history.SetErrorDetailsFromJSON(m.ErrorDetails)
	}

	return history
}

// ImportHistoryModelFromDomain creates a new persistence model from a domain ImportHistory entity.
func ImportHistoryModelFromDomain(h *bulk.ImportHistory) *ImportHistoryModel {
	m := &ImportHistoryModel{
		ID:          h.ID.String(),
		Kind:        string(h.Kind),
		TotalRows:   h.TotalRows,
		SuccessRows: h.SuccessRows,
		ErrorRows:   h.ErrorRows,
		SkippedRows: h.SkippedRows,
		Status:      string(h.Status),
		Message:     h.Message,
		CreatedAt:   FormatTime(h.CreatedAt),
		StartedAt:   FormatTimePtr(h.StartedAt),
		CompletedAt: FormatTimePtr(h.CompletedAt),
	}

	if names, err := json.Marshal(h.SourceNames); err == nil {
		m.SourceNames = string(names)
	} else {
		m.SourceNames = "[]"
	}

	// Serialize error details to JSON
	if errorJSON, err := h.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}

	return m
}
