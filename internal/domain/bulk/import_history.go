package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportKind represents what an import run loads
type ImportKind string

const (
	ImportKindCatalog       ImportKind = "catalog"
	ImportKindDeliveryNotes ImportKind = "delivery_notes"
)

// IsValid checks if the import kind is valid
func (k ImportKind) IsValid() bool {
	return k == ImportKindCatalog || k == ImportKindDeliveryNotes
}

// ImportStatus represents the status of an import operation
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCancelled  ImportStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted,
		ImportStatusFailed, ImportStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusCancelled
}

// ImportErrorDetail represents a detailed error for a specific row
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportHistory tracks the history and result of one import run
type ImportHistory struct {
	ID           uuid.UUID
	Kind         ImportKind
	SourceNames  []string
	TotalRows    int
	SuccessRows  int
	ErrorRows    int
	SkippedRows  int
	Status       ImportStatus
	Message      string
	ErrorDetails []ImportErrorDetail
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewImportHistory creates a new import history record
func NewImportHistory(kind ImportKind, sourceNames []string) (*ImportHistory, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_IMPORT_KIND", fmt.Sprintf("Invalid import kind: %s", kind))
	}
	if len(sourceNames) == 0 {
		return nil, shared.NewDomainError("INVALID_SOURCE", "At least one source is required")
	}

	return &ImportHistory{
		ID:           uuid.New(),
		Kind:         kind,
		SourceNames:  append([]string(nil), sourceNames...),
		Status:       ImportStatusPending,
		ErrorDetails: make([]ImportErrorDetail, 0),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// SourceList returns the source names as a single display string
func (h *ImportHistory) SourceList() string {
	return strings.Join(h.SourceNames, ", ")
}

// StartProcessing marks the import as started
func (h *ImportHistory) StartProcessing(totalRows int) error {
	if h.Status != ImportStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot start processing from state: %s", h.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}

	h.Status = ImportStatusProcessing
	h.TotalRows = totalRows
	now := time.Now().UTC()
	h.StartedAt = &now

	return nil
}

// Complete marks the import as successfully completed
func (h *ImportHistory) Complete(successRows, errorRows, skippedRows int, errors []ImportErrorDetail) error {
	if h.Status != ImportStatusProcessing {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot complete from state: %s", h.Status))
	}

	h.Status = ImportStatusCompleted
	h.SuccessRows = successRows
	h.ErrorRows = errorRows
	h.SkippedRows = skippedRows
	if errors != nil {
		h.ErrorDetails = errors
	}
	now := time.Now().UTC()
	h.CompletedAt = &now

	return nil
}

// Fail marks the import as failed
func (h *ImportHistory) Fail(message string) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot fail from terminal state: %s", h.Status))
	}

	h.Status = ImportStatusFailed
	h.Message = message
	now := time.Now().UTC()
	h.CompletedAt = &now

	return nil
}

// Cancel marks the import as cancelled
func (h *ImportHistory) Cancel() error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel from terminal state: %s", h.Status))
	}

	h.Status = ImportStatusCancelled
	now := time.Now().UTC()
	h.CompletedAt = &now

	return nil
}

// HasErrors returns true if there are any errors
func (h *ImportHistory) HasErrors() bool {
	return len(h.ErrorDetails) > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	if len(h.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (h *ImportHistory) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		h.ErrorDetails = make([]ImportErrorDetail, 0)
		return nil
	}
	var errors []ImportErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &errors); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	h.ErrorDetails = errors
	return nil
}

// Duration returns the duration of the import operation
func (h *ImportHistory) Duration() time.Duration {
	if h.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if h.CompletedAt != nil {
		end = *h.CompletedAt
	}
	return end.Sub(*h.StartedAt)
}
