// Package app wires the store, repositories and services of the reconciliation engine.
package app

import (
	"context"
	"fmt"

	appcatalog "github.com/Proyectitos24/RepasoAlbaranes/internal/application/catalog"
	importapp "github.com/Proyectitos24/RepasoAlbaranes/internal/application/import"
	appledger "github.com/Proyectitos24/RepasoAlbaranes/internal/application/ledger"
	appreceiving "github.com/Proyectitos24/RepasoAlbaranes/internal/application/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/auth"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/config"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/logger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/migration"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/source"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/staging"
	"go.uber.org/zap"
)

// App holds the process-wide store handle and every service built on it
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *persistence.Database
	Schema   *migration.Manager
	Staging  *staging.Store
	Groups   *ledger.Catalog

	History       *importapp.ImportHistoryService
	CatalogImport *appcatalog.ImportService
	Search        *appcatalog.SearchService
	NoteImport    *appreceiving.NoteImportService
	Notes         *appreceiving.NoteService
	Sessions      *appreceiving.SessionService
	Ledger        *appledger.LedgerService
	ManualLedger  *appledger.ManualLedgerService
	Gate          *auth.PinGate
}

// New opens the store, brings its schema up to date and builds the services.
// The returned App owns the store handle; call Close when done.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	storeLogger := logger.NewStoreLogger(log, cfg.Log.GormLevel, cfg.Log.SlowThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Store, storeLogger)
	if err != nil {
		return nil, err
	}

	schema := migration.NewManager(db.DB, log)
	if err := schema.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	groups, err := cfg.GroupCatalog()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid ledger groups: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		Database: db,
		Schema:   schema,
		Staging:  staging.NewStore(cfg.Import.StagingDir, log),
		Groups:   groups,
	}
	a.wire()

	log.Info("Store ready",
		zap.String("path", cfg.Store.Path),
		zap.Int("groups", len(groups.All())),
	)
	return a, nil
}

func (a *App) wire() {
	cfg, log, gdb := a.Config, a.Logger, a.Database.DB

	productRepo := persistence.NewGormProductRepository(gdb)
	noteRepo := persistence.NewGormDeliveryNoteRepository(gdb)
	lineRepo := persistence.NewGormDeliveryLineRepository(gdb)
	receivingScope := persistence.NewGormReceivingScope(gdb)
	ledgerScope := persistence.NewGormLedgerScope(gdb)

	a.History = importapp.NewImportHistoryService(persistence.NewGormImportHistoryRepository(gdb), log)
	a.CatalogImport = appcatalog.NewImportService(
		persistence.NewGormCatalogScope(gdb),
		a.History,
		appcatalog.ImportSettings{
			BatchSize:  cfg.Import.BatchSize,
			YieldEvery: cfg.Import.YieldEvery,
			MaxErrors:  cfg.Import.MaxErrors,
		},
		log,
	)
	a.Search = appcatalog.NewSearchService(productRepo)

	a.NoteImport = appreceiving.NewNoteImportService(
		receivingScope,
		a.History,
		a.Staging,
		appreceiving.NoteImportSettings{
			KeepStaged: cfg.Import.KeepStaged,
			YieldEvery: cfg.Import.YieldEvery,
			MaxErrors:  cfg.Import.MaxErrors,
		},
		log,
	)
	a.Sessions = appreceiving.NewSessionService(
		noteRepo, lineRepo, productRepo,
		appreceiving.SessionSettings{DebounceWindow: cfg.Session.DebounceWindow},
		log,
	)

	a.Ledger = appledger.NewLedgerService(
		ledgerScope,
		persistence.NewGormBalanceRepository(gdb, ledger.BookDelivery),
		persistence.NewGormMovementRepository(gdb, ledger.BookDelivery),
		a.Groups,
		log,
	)
	a.ManualLedger = appledger.NewManualLedgerService(
		ledgerScope,
		persistence.NewGormBalanceRepository(gdb, ledger.BookManual),
		persistence.NewGormMovementRepository(gdb, ledger.BookManual),
		a.Groups,
		log,
	)
	a.Notes = appreceiving.NewNoteService(noteRepo, receivingScope, a.Ledger, log)
	a.Gate = auth.NewPinGate(persistence.NewGormSettingRepository(gdb), cfg.Ledger.DefaultPIN, log)
}

// OpenFile returns an opener that stages path before reading it
func (a *App) OpenFile(path string) source.Opener {
	return source.NewFileOpener(path, a.Staging)
}

// Close releases the store handle
func (a *App) Close() error {
	a.Logger.Info("Closing store")
	return a.Database.Close()
}
