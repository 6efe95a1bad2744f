package catalog

import (
	"context"
	"errors"
	"strings"

	importapp "github.com/Proyectitos24/RepasoAlbaranes/internal/application/import"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/bulk"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	csvimport "github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/import"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/logger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// External catalog layout
var (
	itemTable = source.TableRequest{
		Name:    "Item",
		Columns: []string{"ItemID", "LoyaltyDescription"},
	}
	itemEANTable = source.TableRequest{
		Name:    "ItemEAN",
		Columns: []string{"ItemID", "EAN"},
	}
)

// ImportSettings tunes a catalog import
type ImportSettings struct {
	BatchSize  int // rows per insert statement
	YieldEvery int // rows between cooperative yields
	MaxErrors  int // row errors kept in the result
}

// ImportCatalogResult is the outcome of a catalog import
type ImportCatalogResult struct {
	Count       int                  `json:"count"`
	Skipped     int                  `json:"skipped"`
	HistoryID   *uuid.UUID           `json:"history_id,omitempty"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
}

// ImportService replaces the local catalog with the content of an external catalog
type ImportService struct {
	txScope  TransactionScope
	history  *importapp.ImportHistoryService
	settings ImportSettings
	progress importapp.ProgressFunc
	logger   *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	txScope TransactionScope,
	history *importapp.ImportHistoryService,
	settings ImportSettings,
	logger *zap.Logger,
) *ImportService {
	if settings.BatchSize <= 0 {
		settings.BatchSize = 200
	}
	if settings.YieldEvery <= 0 {
		settings.YieldEvery = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		txScope:  txScope,
		history:  history,
		settings: settings,
		logger:   logger.Named("catalog_import"),
	}
}

// OnProgress sets the callback receiving progress updates
func (s *ImportService) OnProgress(fn importapp.ProgressFunc) {
	s.progress = fn
}

// ImportCatalog reads Item and ItemEAN from the opened source and replaces
// every product in one transaction. The store is untouched on any error.
func (s *ImportService) ImportCatalog(ctx context.Context, opener source.Opener) (*ImportCatalogResult, error) {
	if opener.Name() == "" || ctx.Err() != nil {
		s.logger.Info("Catalog import canceled before start")
		return nil, shared.ErrCanceled
	}

	var history *bulk.ImportHistory
	if s.history != nil {
		history = s.history.Begin(ctx, bulk.ImportKindCatalog, []string{opener.Name()})
	}
	log := s.logger
	if history != nil {
		ctx, log = logger.WithOperationID(ctx, s.logger, history.ID.String())
	}

	result, err := s.importCatalog(ctx, opener, history)
	if err != nil {
		if s.history != nil {
			s.history.FailImport(ctx, history, err)
		}
		if errors.Is(err, shared.ErrCanceled) {
			log.Info("Catalog import canceled", zap.String("source", opener.Name()))
		} else {
			log.Error("Catalog import failed", zap.String("source", opener.Name()), zap.Error(err))
		}
		return nil, err
	}
	if history != nil {
		id := history.ID
		result.HistoryID = &id
	}

	log.Info("Catalog imported",
		zap.String("source", opener.Name()),
		zap.Int("rows", result.Count),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *ImportService) importCatalog(ctx context.Context, opener source.Opener, history *bulk.ImportHistory) (*ImportCatalogResult, error) {
	src, err := opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if _, err := source.RequireTables(ctx, src, itemTable.Name, itemEANTable.Name); err != nil {
		return nil, err
	}
	items, err := src.ReadTable(ctx, itemTable)
	if err != nil {
		return nil, err
	}
	eans, err := src.ReadTable(ctx, itemEANTable)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		s.history.StartProcessing(ctx, history, len(eans.Rows))
	}

	errs := csvimport.NewErrorCollection(s.settings.MaxErrors)
	products, err := s.joinRows(ctx, src.Name(), items.Rows, eans.Rows, errs)
	if err != nil {
		return nil, err
	}

	if err := s.replaceAll(ctx, products); err != nil {
		return nil, err
	}

	result := &ImportCatalogResult{
		Count:       len(products),
		Skipped:     len(eans.Rows) - len(products),
		Errors:      errs.Errors(),
		TotalErrors: errs.TotalCount(),
	}
	if s.history != nil {
		s.history.CompleteImport(ctx, history, result.Count, result.Skipped, errs)
	}
	return result, nil
}

// joinRows pairs every ItemEAN row with its Item description. Rows without
// a matching item or a usable barcode are skipped.
func (s *ImportService) joinRows(
	ctx context.Context,
	sourceName string,
	items, eans []source.Record,
	errs *csvimport.ErrorCollection,
) ([]catalog.Product, error) {
	names := make(map[int64]string, len(items))
	for _, rec := range items {
		id, ok := parseItemID(rec["ItemID"])
		if !ok {
			continue
		}
		if _, dup := names[id]; !dup {
			names[id] = rec["LoyaltyDescription"]
		}
	}

	yield := importapp.NewYielder(s.settings.YieldEvery)
	products := make([]catalog.Product, 0, len(eans))
	for i, rec := range eans {
		if err := yield.Tick(ctx); err != nil {
			return nil, err
		}
		row := i + 1

		id, ok := parseItemID(rec["ItemID"])
		if !ok {
			errs.Add(csvimport.NewRowErrorWithValue(row, "ItemID", csvimport.ErrCodeImportInvalidValue,
				"item id is not a positive number", rec["ItemID"]).In(sourceName))
			continue
		}
		name, ok := names[id]
		if !ok {
			errs.Add(csvimport.NewRowErrorWithValue(row, "ItemID", csvimport.ErrCodeImportUnknownItem,
				"item has no Item row", rec["ItemID"]).In(sourceName))
			continue
		}
		product, err := catalog.NewProduct(id, name, rec["EAN"])
		if err != nil {
			errs.Add(csvimport.NewRowErrorWithValue(row, "EAN", csvimport.ErrCodeImportInvalidBarcode,
				"barcode has no digits", rec["EAN"]).In(sourceName))
			continue
		}
		products = append(products, *product)

		if row%s.settings.YieldEvery == 0 {
			s.progress.Report(importapp.StepRead, row, len(eans))
		}
	}
	s.progress.Report(importapp.StepRead, len(eans), len(eans))
	return products, nil
}

// replaceAll swaps the whole catalog for products
func (s *ImportService) replaceAll(ctx context.Context, products []catalog.Product) error {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.ProductRepo()
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}

		batch := s.settings.BatchSize
		yield := importapp.NewYielder(max(1, s.settings.YieldEvery/batch))
		for start := 0; start < len(products); start += batch {
			if err := yield.Tick(ctx); err != nil {
				return err
			}
			end := min(start+batch, len(products))
			if err := repo.CreateBatch(ctx, products[start:end], batch); err != nil {
				return err
			}
			s.progress.Report(importapp.StepWrite, end, len(products))
		}
		return repo.Reindex(ctx)
	})
	if err != nil {
		if errors.Is(err, shared.ErrCanceled) || ctx.Err() != nil {
			return shared.ErrCanceled
		}
		return shared.WrapTransaction("import catalog", err)
	}
	return nil
}

// parseItemID reads an item id that may have been exported as a decimal
func parseItemID(raw string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0, false
	}
	return d.IntPart(), true
}
