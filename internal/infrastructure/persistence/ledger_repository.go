package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceRepository implements BalanceRepository for one book using GORM
type GormBalanceRepository struct {
	db    *gorm.DB
	book  ledger.Book
	table string
}

// NewGormBalanceRepository creates a balance repository bound to book
func NewGormBalanceRepository(db *gorm.DB, book ledger.Book) *GormBalanceRepository {
	return &GormBalanceRepository{db: db, book: book, table: models.BalanceTable(book)}
}

func (r *GormBalanceRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// Find returns the balance for (group, code)
func (r *GormBalanceRepository) Find(ctx context.Context, group, code string) (*ledger.Balance, error) {
	var model models.BalanceModel
	if err := r.scoped(ctx).
		Where("grupo = ? AND codigo = ?", group, code).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Balance", group+"/"+code)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// AddDelta adds b.Saldo to the stored balance, inserting the row when absent.
// Description and timestamp are always overwritten.
func (r *GormBalanceRepository) AddDelta(ctx context.Context, b ledger.Balance) error {
	model := models.BalanceModelFromDomain(&b)
	return r.scoped(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "grupo"}, {Name: "codigo"}},
			DoUpdates: clause.Assignments(map[string]any{
				"descripcion": gorm.Expr("excluded.descripcion"),
				"saldo":       gorm.Expr(r.table + ".saldo + excluded.saldo"),
				"updated_at":  gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(model).Error
}

// Put stores the balance with an absolute value
func (r *GormBalanceRepository) Put(ctx context.Context, b ledger.Balance) error {
	model := models.BalanceModelFromDomain(&b)
	return r.scoped(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "grupo"}, {Name: "codigo"}},
			DoUpdates: clause.AssignmentColumns([]string{"descripcion", "saldo", "updated_at"}),
		}).
		Create(model).Error
}

// Delete removes the balance for (group, code)
func (r *GormBalanceRepository) Delete(ctx context.Context, group, code string) error {
	return r.scoped(ctx).
		Where("grupo = ? AND codigo = ?", group, code).
		Delete(&models.BalanceModel{}).Error
}

// DeleteZero removes the balance for (group, code) if it is exactly zero
func (r *GormBalanceRepository) DeleteZero(ctx context.Context, group, code string) error {
	return r.scoped(ctx).
		Where("grupo = ? AND codigo = ? AND saldo = 0", group, code).
		Delete(&models.BalanceModel{}).Error
}

// DeleteGroup removes every balance of a group
func (r *GormBalanceRepository) DeleteGroup(ctx context.Context, group string) error {
	return r.scoped(ctx).Where("grupo = ?", group).Delete(&models.BalanceModel{}).Error
}

// DeleteAll removes every balance
func (r *GormBalanceRepository) DeleteAll(ctx context.Context) error {
	return r.scoped(ctx).Where("1 = 1").Delete(&models.BalanceModel{}).Error
}

// ListNonZero returns nonzero balances of a group, largest magnitude first.
// Ties sort by code in the delivery book and by description in the manual one.
func (r *GormBalanceRepository) ListNonZero(ctx context.Context, group string, limit int) ([]ledger.Balance, error) {
	tieBreak := "codigo ASC"
	if r.book == ledger.BookManual {
		tieBreak = "descripcion ASC"
	}
	query := r.scoped(ctx).
		Where("grupo = ? AND saldo != 0", group).
		Order("ABS(saldo) DESC, " + tieBreak)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.BalanceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Balance, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Summarize aggregates nonzero balances per group
func (r *GormBalanceRepository) Summarize(ctx context.Context) ([]ledger.GroupSummary, error) {
	var rows []models.GroupSummaryRow
	if err := r.scoped(ctx).
		Select(`grupo,
			COUNT(*) AS items,
			COALESCE(SUM(CASE WHEN saldo < 0 THEN -saldo ELSE 0 END), 0) AS faltan,
			COALESCE(SUM(CASE WHEN saldo > 0 THEN saldo ELSE 0 END), 0) AS sobran`).
		Where("saldo != 0").
		Group("grupo").
		Order("grupo ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.GroupSummary, len(rows))
	for i, row := range rows {
		out[i] = ledger.GroupSummary{Group: row.Grupo, Items: row.Items, Faltan: row.Faltan, Sobran: row.Sobran}
	}
	return out, nil
}

// GormMovementRepository implements MovementRepository for one book using GORM
type GormMovementRepository struct {
	db    *gorm.DB
	book  ledger.Book
	table string
}

// NewGormMovementRepository creates a movement repository bound to book
func NewGormMovementRepository(db *gorm.DB, book ledger.Book) *GormMovementRepository {
	return &GormMovementRepository{db: db, book: book, table: models.MovementTable(book)}
}

func (r *GormMovementRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *GormMovementRepository) requireNotes() error {
	if r.book == ledger.BookManual {
		return fmt.Errorf("%s has no delivery note reference", r.table)
	}
	return nil
}

// Append inserts a movement and sets its ID
func (r *GormMovementRepository) Append(ctx context.Context, m *ledger.Movement) error {
	model := models.MovementModelFromDomain(m)
	query := r.scoped(ctx)
	if r.book == ledger.BookManual {
		query = query.Omit("albaran_id")
	}
	if err := query.Create(model).Error; err != nil {
		return err
	}
	m.ID = model.ID
	return nil
}

// ListByKey returns movements for (group, code), newest first
func (r *GormMovementRepository) ListByKey(ctx context.Context, group, code string, limit int) ([]ledger.Movement, error) {
	query := r.scoped(ctx).
		Where("grupo = ? AND codigo = ?", group, code).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.MovementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Movement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Nets sums movement deltas grouped by (group, code)
func (r *GormMovementRepository) Nets(ctx context.Context) ([]ledger.CodeNet, error) {
	return r.nets(r.scoped(ctx))
}

// NetsByNote sums the deltas of a note's movements grouped by (group, code)
func (r *GormMovementRepository) NetsByNote(ctx context.Context, noteID int64) ([]ledger.CodeNet, error) {
	if err := r.requireNotes(); err != nil {
		return nil, err
	}
	return r.nets(r.scoped(ctx).Where("albaran_id = ?", noteID))
}

func (r *GormMovementRepository) nets(query *gorm.DB) ([]ledger.CodeNet, error) {
	var rows []models.CodeNetRow
	if err := query.
		Select("grupo, codigo, SUM(delta) AS net").
		Group("grupo, codigo").
		Order("grupo ASC, codigo ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.CodeNet, len(rows))
	for i, row := range rows {
		out[i] = ledger.CodeNet{Group: row.Grupo, Code: row.Codigo, Net: row.Net}
	}
	return out, nil
}

// Net returns the summed delta for (group, code)
func (r *GormMovementRepository) Net(ctx context.Context, group, code string) (int, error) {
	var net int
	err := r.scoped(ctx).
		Select("COALESCE(SUM(delta), 0)").
		Where("grupo = ? AND codigo = ?", group, code).
		Scan(&net).Error
	return net, err
}

// DeleteByNote removes the movements tied to a note
func (r *GormMovementRepository) DeleteByNote(ctx context.Context, noteID int64) error {
	if err := r.requireNotes(); err != nil {
		return err
	}
	return r.scoped(ctx).Where("albaran_id = ?", noteID).Delete(&models.MovementModel{}).Error
}

// DeleteGroup removes every movement of a group
func (r *GormMovementRepository) DeleteGroup(ctx context.Context, group string) error {
	return r.scoped(ctx).Where("grupo = ?", group).Delete(&models.MovementModel{}).Error
}

// DeleteAll removes every movement
func (r *GormMovementRepository) DeleteAll(ctx context.Context) error {
	return r.scoped(ctx).Where("1 = 1").Delete(&models.MovementModel{}).Error
}

// Compile-time interface compliance checks
var (
	_ ledger.BalanceRepository  = (*GormBalanceRepository)(nil)
	_ ledger.MovementRepository = (*GormMovementRepository)(nil)
)
