package persistence

import (
	"context"

	appcatalog "github.com/Proyectitos24/RepasoAlbaranes/internal/application/catalog"
	appledger "github.com/Proyectitos24/RepasoAlbaranes/internal/application/ledger"
	appreceiving "github.com/Proyectitos24/RepasoAlbaranes/internal/application/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"gorm.io/gorm"
)

// GormCatalogScope implements the catalog TransactionScope using GORM transactions
type GormCatalogScope struct {
	db *gorm.DB
}

// NewGormCatalogScope creates a new GormCatalogScope
func NewGormCatalogScope(db *gorm.DB) *GormCatalogScope {
	return &GormCatalogScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCatalogScope) Execute(ctx context.Context, fn func(repos appcatalog.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormReceivingScope implements the receiving TransactionScope using GORM transactions
type GormReceivingScope struct {
	db *gorm.DB
}

// NewGormReceivingScope creates a new GormReceivingScope
func NewGormReceivingScope(db *gorm.DB) *GormReceivingScope {
	return &GormReceivingScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormReceivingScope) Execute(ctx context.Context, fn func(repos appreceiving.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormLedgerScope implements the ledger TransactionScope using GORM transactions
type GormLedgerScope struct {
	db *gorm.DB
}

// NewGormLedgerScope creates a new GormLedgerScope
func NewGormLedgerScope(db *gorm.DB) *GormLedgerScope {
	return &GormLedgerScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormLedgerScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ProductRepo returns the product repository scoped to the current transaction
func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// NoteRepo returns the delivery note repository scoped to the current transaction
func (r *gormTransactionalRepositories) NoteRepo() receiving.DeliveryNoteRepository {
	return NewGormDeliveryNoteRepository(r.tx)
}

// LineRepo returns the delivery line repository scoped to the current transaction
func (r *gormTransactionalRepositories) LineRepo() receiving.DeliveryLineRepository {
	return NewGormDeliveryLineRepository(r.tx)
}

// BalanceRepo returns the balance repository of book scoped to the current transaction
func (r *gormTransactionalRepositories) BalanceRepo(book ledger.Book) ledger.BalanceRepository {
	return NewGormBalanceRepository(r.tx, book)
}

// MovementRepo returns the movement repository of book scoped to the current transaction
func (r *gormTransactionalRepositories) MovementRepo(book ledger.Book) ledger.MovementRepository {
	return NewGormMovementRepository(r.tx, book)
}

// Ensure the scopes implement the application interfaces
var (
	_ appcatalog.TransactionScope   = (*GormCatalogScope)(nil)
	_ appreceiving.TransactionScope = (*GormReceivingScope)(nil)
	_ appledger.TransactionScope    = (*GormLedgerScope)(nil)
)

// Ensure gormTransactionalRepositories implements every TransactionalRepositories
var (
	_ appcatalog.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ appreceiving.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appledger.TransactionalRepositories    = (*gormTransactionalRepositories)(nil)
)
