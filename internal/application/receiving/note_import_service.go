package receiving

import (
	"context"
	"errors"
	"strings"
	"time"

	importapp "github.com/Proyectitos24/RepasoAlbaranes/internal/application/import"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/bulk"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	csvimport "github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/import"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/logger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// External listing layout
var lineaTable = source.TableRequest{
	Name:     "Linea",
	Columns:  []string{"Etiqueta", "Codigo", "Descripcion", "Cantidad"},
	Optional: []string{"Falta"},
	OrderBy:  "id",
}

// Pruner trims the staging area after an import
type Pruner interface {
	Prune(keep int) (int, error)
}

// ImportOptions selects how existing notes are treated
type ImportOptions struct {
	// ReplaceOpenNotes replaces the lines of notes that exist and are still
	// open. Finalized notes are never touched.
	ReplaceOpenNotes bool
}

// NoteImportSettings tunes a listing import
type NoteImportSettings struct {
	KeepStaged int // staged copies retained afterwards
	YieldEvery int // labels between cooperative yields
	MaxErrors  int // row errors kept in the result
}

// NoteImportResult is the outcome of a listing import
type NoteImportResult struct {
	AddedNotes       int                  `json:"added_notes"`
	AddedLines       int                  `json:"added_lines"`
	SkippedRows      int                  `json:"skipped_rows"`
	AlreadyExisted   []string             `json:"already_existed"`
	AlreadyFinalized []string             `json:"already_finalized"`
	Replaced         []string             `json:"replaced,omitempty"`
	HistoryID        *uuid.UUID           `json:"history_id,omitempty"`
	Errors           []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors      int                  `json:"total_errors,omitempty"`
}

// listingRow is one Linea row and where it came from
type listingRow struct {
	source string
	row    int
	rec    source.Record
}

// NoteImportService merges delivery listings into the local notes
type NoteImportService struct {
	txScope  TransactionScope
	history  *importapp.ImportHistoryService
	pruner   Pruner
	settings NoteImportSettings
	progress importapp.ProgressFunc
	logger   *zap.Logger
	now      func() time.Time
}

// NewNoteImportService creates a new NoteImportService
func NewNoteImportService(
	txScope TransactionScope,
	history *importapp.ImportHistoryService,
	pruner Pruner,
	settings NoteImportSettings,
	logger *zap.Logger,
) *NoteImportService {
	if settings.YieldEvery <= 0 {
		settings.YieldEvery = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteImportService{
		txScope:  txScope,
		history:  history,
		pruner:   pruner,
		settings: settings,
		logger:   logger.Named("note_import"),
		now:      time.Now,
	}
}

// OnProgress sets the callback receiving progress updates
func (s *NoteImportService) OnProgress(fn importapp.ProgressFunc) {
	s.progress = fn
}

// ImportDeliveryNotes reads the Linea table of every source and inserts the
// notes whose label is not stored yet. Existing notes are reported and left
// alone unless opts asks to replace open ones. All writes share one transaction.
func (s *NoteImportService) ImportDeliveryNotes(ctx context.Context, srcs []source.Opener, opts ImportOptions) (*NoteImportResult, error) {
	defer s.prune()

	// a dismissed picker cancels the whole batch
	names := make([]string, 0, len(srcs))
	for _, o := range srcs {
		if o.Name() == "" {
			names = nil
			break
		}
		names = append(names, o.Name())
	}
	if len(names) == 0 || ctx.Err() != nil {
		s.logger.Info("Delivery note import canceled before start")
		return nil, shared.ErrCanceled
	}

	var history *bulk.ImportHistory
	if s.history != nil {
		history = s.history.Begin(ctx, bulk.ImportKindDeliveryNotes, names)
	}
	log := s.logger
	if history != nil {
		ctx, log = logger.WithOperationID(ctx, s.logger, history.ID.String())
	}

	result, err := s.importNotes(ctx, srcs, opts, history)
	if err != nil {
		if s.history != nil {
			s.history.FailImport(ctx, history, err)
		}
		if errors.Is(err, shared.ErrCanceled) {
			log.Info("Delivery note import canceled", zap.Strings("sources", names))
		} else {
			log.Error("Delivery note import failed", zap.Strings("sources", names), zap.Error(err))
		}
		return nil, err
	}
	if history != nil {
		id := history.ID
		result.HistoryID = &id
	}

	log.Info("Delivery notes imported",
		zap.Strings("sources", names),
		zap.Int("notes", result.AddedNotes),
		zap.Int("lines", result.AddedLines),
		zap.Int("skipped", result.SkippedRows),
		zap.Int("existed", len(result.AlreadyExisted)),
		zap.Int("finalized", len(result.AlreadyFinalized)),
	)
	return result, nil
}

func (s *NoteImportService) importNotes(
	ctx context.Context,
	srcs []source.Opener,
	opts ImportOptions,
	history *bulk.ImportHistory,
) (*NoteImportResult, error) {
	labels, byLabel, total, err := s.collect(ctx, srcs)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		s.history.StartProcessing(ctx, history, total)
	}

	result := &NoteImportResult{
		AlreadyExisted:   []string{},
		AlreadyFinalized: []string{},
	}
	errs := csvimport.NewErrorCollection(s.settings.MaxErrors)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		noteRepo, lineRepo := repos.NoteRepo(), repos.LineRepo()
		yield := importapp.NewYielder(s.settings.YieldEvery)

		for i, label := range labels {
			if err := yield.Tick(ctx); err != nil {
				return err
			}
			s.progress.Report(importapp.StepWrite, i+1, len(labels))

			existing, err := noteRepo.FindByLabel(ctx, label)
			switch {
			case err == nil && existing.IsFinalized():
				result.AlreadyFinalized = append(result.AlreadyFinalized, label)
				continue
			case err == nil && (!opts.ReplaceOpenNotes || existing.IsArchived()):
				result.AlreadyExisted = append(result.AlreadyExisted, label)
				continue
			case err == nil:
				if err := lineRepo.DeleteByNote(ctx, existing.ID); err != nil {
					return err
				}
				added, err := s.insertLines(ctx, lineRepo, existing.ID, byLabel[label], result, errs)
				if err != nil {
					return err
				}
				result.AddedLines += added
				result.Replaced = append(result.Replaced, label)
				continue
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}

			note, err := receiving.NewDeliveryNote(label, s.now())
			if err != nil {
				return err
			}
			if err := noteRepo.Create(ctx, note); err != nil {
				return err
			}
			added, err := s.insertLines(ctx, lineRepo, note.ID, byLabel[label], result, errs)
			if err != nil {
				return err
			}
			result.AddedNotes++
			result.AddedLines += added
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrCanceled) || ctx.Err() != nil {
			return nil, shared.ErrCanceled
		}
		return nil, shared.WrapTransaction("import delivery notes", err)
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	if s.history != nil {
		s.history.CompleteImport(ctx, history, result.AddedLines, result.SkippedRows, errs)
	}
	return result, nil
}

// collect reads the Linea rows of every source grouped by label, keeping the
// order in which labels first appear
func (s *NoteImportService) collect(ctx context.Context, srcs []source.Opener) ([]string, map[string][]listingRow, int, error) {
	var labels []string
	byLabel := make(map[string][]listingRow)
	total := 0

	for _, opener := range srcs {
		table, name, err := readListing(ctx, opener)
		if err != nil {
			return nil, nil, 0, err
		}
		for i, rec := range table.Rows {
			label := strings.TrimSpace(rec["Etiqueta"])
			if label == "" {
				continue
			}
			if _, seen := byLabel[label]; !seen {
				labels = append(labels, label)
			}
			byLabel[label] = append(byLabel[label], listingRow{source: name, row: i + 1, rec: rec})
			total++
		}
		s.progress.Report(importapp.StepRead, total, total)
	}
	return labels, byLabel, total, nil
}

func readListing(ctx context.Context, opener source.Opener) (*source.Table, string, error) {
	src, err := opener.Open(ctx)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	if _, err := source.RequireTables(ctx, src, lineaTable.Name); err != nil {
		return nil, "", err
	}
	table, err := src.ReadTable(ctx, lineaTable)
	if err != nil {
		return nil, "", err
	}
	return table, src.Name(), nil
}

// insertLines stores the valid rows of one label; invalid rows are counted and reported
func (s *NoteImportService) insertLines(
	ctx context.Context,
	lineRepo receiving.DeliveryLineRepository,
	noteID int64,
	rows []listingRow,
	result *NoteImportResult,
	errs *csvimport.ErrorCollection,
) (int, error) {
	lines := make([]*receiving.DeliveryLine, 0, len(rows))
	for _, r := range rows {
		line, err := receiving.NewImportedLine(
			noteID,
			r.rec["Codigo"],
			r.rec["Descripcion"],
			receiving.ParseQuantity(r.rec["Cantidad"]),
			receiving.ParseQuantity(r.rec["Falta"]),
		)
		if err != nil {
			result.SkippedRows++
			errs.Add(rowError(r).In(r.source))
			continue
		}
		lines = append(lines, line)
	}
	if err := lineRepo.CreateBatch(ctx, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// rowError describes why a listing row was rejected
func rowError(r listingRow) csvimport.RowError {
	switch {
	case strings.TrimSpace(r.rec["Codigo"]) == "":
		return csvimport.NewRowError(r.row, "Codigo", csvimport.ErrCodeImportRequiredField, "field 'Codigo' is required")
	case strings.TrimSpace(r.rec["Descripcion"]) == "":
		return csvimport.NewRowError(r.row, "Descripcion", csvimport.ErrCodeImportRequiredField, "field 'Descripcion' is required")
	default:
		return csvimport.NewRowErrorWithValue(r.row, "Cantidad", csvimport.ErrCodeImportInvalidValue,
			"quantity must be positive", r.rec["Cantidad"])
	}
}

func (s *NoteImportService) prune() {
	if s.pruner == nil || s.settings.KeepStaged < 1 {
		return
	}
	if _, err := s.pruner.Prune(s.settings.KeepStaged); err != nil {
		s.logger.Warn("Failed to prune staged sources", zap.Error(err))
	}
}
