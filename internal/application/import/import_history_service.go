// Package importapp records the outcome of catalog and delivery listing imports.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/bulk"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	csvimport "github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/import"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultHistoryLimit caps ListHistory when the caller gives no limit
const defaultHistoryLimit = 50

// ImportHistoryService manages import history tracking and retrieval.
// Recording failures are logged and never abort the import being recorded.
type ImportHistoryService struct {
	historyRepo bulk.ImportHistoryRepository
	logger      *zap.Logger
}

// NewImportHistoryService creates a new ImportHistoryService
func NewImportHistoryService(historyRepo bulk.ImportHistoryRepository, logger *zap.Logger) *ImportHistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHistoryService{
		historyRepo: historyRepo,
		logger:      logger.Named("import_history"),
	}
}

// Begin creates a pending history record for an import reading sources.
// It returns nil when the record could not be stored.
func (s *ImportHistoryService) Begin(ctx context.Context, kind bulk.ImportKind, sources []string) *bulk.ImportHistory {
	history, err := bulk.NewImportHistory(kind, sources)
	if err != nil {
		s.logger.Warn("Invalid import history", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	if !s.save(ctx, history) {
		return nil
	}
	return history
}

// StartProcessing marks an import as started over totalRows rows
func (s *ImportHistoryService) StartProcessing(ctx context.Context, history *bulk.ImportHistory, totalRows int) {
	if history == nil {
		return
	}
	if err := history.StartProcessing(totalRows); err != nil {
		s.logger.Warn("Cannot start import history", zap.String("history_id", history.ID.String()), zap.Error(err))
		return
	}
	s.save(ctx, history)
}

// CompleteImport marks an import as completed with results
func (s *ImportHistoryService) CompleteImport(
	ctx context.Context,
	history *bulk.ImportHistory,
	successRows, skippedRows int,
	errs *csvimport.ErrorCollection,
) {
	if history == nil {
		return
	}
	if history.Status == bulk.ImportStatusPending {
		_ = history.StartProcessing(successRows + skippedRows)
	}

	var details []bulk.ImportErrorDetail
	errorRows := 0
	if errs != nil {
		details = ErrorDetails(errs.Errors())
		errorRows = errs.TotalCount()
	}
	if err := history.Complete(successRows, errorRows, skippedRows, details); err != nil {
		s.logger.Warn("Cannot complete import history", zap.String("history_id", history.ID.String()), zap.Error(err))
		return
	}
	s.save(ctx, history)
}

// FailImport marks an import as failed, or as cancelled when cause is a cancellation
func (s *ImportHistoryService) FailImport(ctx context.Context, history *bulk.ImportHistory, cause error) {
	if history == nil {
		return
	}
	var err error
	if errors.Is(cause, shared.ErrCanceled) || errors.Is(cause, context.Canceled) {
		err = history.Cancel()
	} else {
		err = history.Fail(cause.Error())
	}
	if err != nil {
		s.logger.Warn("Cannot close import history", zap.String("history_id", history.ID.String()), zap.Error(err))
		return
	}
	// the import context may be the one that was canceled
	s.save(context.WithoutCancel(ctx), history)
}

// GetHistory retrieves a specific import history by ID
func (s *ImportHistoryService) GetHistory(ctx context.Context, historyID uuid.UUID) (*bulk.ImportHistory, error) {
	return s.historyRepo.FindByID(ctx, historyID)
}

// ListHistory lists the most recent imports, optionally of one kind
func (s *ImportHistoryService) ListHistory(ctx context.Context, kind string, limit int) ([]*bulk.ImportHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var filter *bulk.ImportKind
	if kind != "" {
		k := bulk.ImportKind(kind)
		if !k.IsValid() {
			return nil, shared.NewValidationError("Invalid import kind: " + kind)
		}
		filter = &k
	}
	return s.historyRepo.ListRecent(ctx, filter, limit)
}

// GetErrorsCSV generates a CSV string of error details for download
func (s *ImportHistoryService) GetErrorsCSV(ctx context.Context, historyID uuid.UUID) (string, string, error) {
	history, err := s.historyRepo.FindByID(ctx, historyID)
	if err != nil {
		return "", "", err
	}

	if len(history.ErrorDetails) == 0 {
		return "", "", shared.NewNotFoundError("Import errors for", historyID)
	}

	var sb strings.Builder
	sb.WriteString("Row,Column,Error Code,Error Message,Value\n")
	for _, e := range history.ErrorDetails {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s\n",
			e.Row,
			escapeCSV(e.Column),
			escapeCSV(e.Code),
			escapeCSV(e.Message),
			escapeCSV(e.Value),
		))
	}

	fileName := fmt.Sprintf("import_errors_%s_%s.csv", history.Kind, history.ID.String()[:8])
	return sb.String(), fileName, nil
}

// ErrorDetails converts row errors to history error details
func ErrorDetails(rowErrs []csvimport.RowError) []bulk.ImportErrorDetail {
	details := make([]bulk.ImportErrorDetail, len(rowErrs))
	for i, e := range rowErrs {
		message := e.Message
		if e.Source != "" {
			message = e.Source + ": " + message
		}
		details[i] = bulk.ImportErrorDetail{
			Row:     e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: message,
			Value:   e.Value,
		}
	}
	return details
}

func (s *ImportHistoryService) save(ctx context.Context, history *bulk.ImportHistory) bool {
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Warn("Failed to save import history",
			zap.String("history_id", history.ID.String()),
			zap.String("status", string(history.Status)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// escapeCSV escapes a string for CSV output
func escapeCSV(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, ",\"\n\r") {
		escaped := strings.ReplaceAll(s, "\"", "\"\"")
		return "\"" + escaped + "\""
	}
	return s
}
