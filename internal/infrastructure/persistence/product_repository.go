package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// defaultProductLimit caps listings when the caller gives no limit
const defaultProductLimit = 200

// barcodeTokenMatch matches a barcode field equal to the candidate or holding
// it as one token of a comma or semicolon separated list
const barcodeTokenMatch = `ean = ? OR (',' || REPLACE(REPLACE(ean, ' ', ''), ';', ',') || ',') LIKE ?`

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByItemID finds a product by its external item id
func (r *GormProductRepository) FindByItemID(ctx context.Context, itemID int64) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBarcode finds the first product whose barcode field equals, or contains
// as a list token, any of the candidates
func (r *GormProductRepository) FindByBarcode(ctx context.Context, candidates []string) (*catalog.Product, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		var model models.ProductModel
		err := r.db.WithContext(ctx).
			Where(barcodeTokenMatch, c, "%,"+c+",%").
			Order("id ASC").
			First(&model).Error
		if err == nil {
			return model.ToDomain(), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, shared.ErrNotFound
}

// FindByBarcodePrefix returns up to limit products with a barcode starting
// with prefix, ordered by item id
func (r *GormProductRepository) FindByBarcodePrefix(ctx context.Context, prefix string, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("ean LIKE ? OR ean LIKE ?", prefix+"%", "%,"+prefix+"%").
		Order("item_id ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// Search returns products matching the filter, newest first
func (r *GormProductRepository) Search(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}

	query := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if filter.ItemID > 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	} else {
		var conds []string
		var args []any
		if filter.Pattern != "" {
			conds = append(conds, "nombre LIKE ?")
			args = append(args, filter.Pattern)
		}
		if filter.Digits != "" {
			conds = append(conds, "ean LIKE ?", "CAST(item_id AS TEXT) LIKE ?")
			args = append(args, "%"+filter.Digits+"%", "%"+filter.Digits+"%")
		}
		if len(conds) > 0 {
			query = query.Where(strings.Join(conds, " OR "), args...)
		}
	}

	var rows []models.ProductModel
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// Count returns the number of catalog rows
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Count(&n).Error
	return n, err
}

// DeleteAll removes every product and resets the id sequence
func (r *GormProductRepository) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("DELETE FROM productos").Error; err != nil {
		return err
	}
	// sqlite_sequence only exists once an AUTOINCREMENT table received a row
	if db.Migrator().HasTable("sqlite_sequence") {
		if err := db.Exec("DELETE FROM sqlite_sequence WHERE name = 'productos'").Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateBatch inserts products in batches of batchSize
func (r *GormProductRepository) CreateBatch(ctx context.Context, products []catalog.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]*models.ProductModel, len(products))
	for i := range products {
		rows[i] = models.ProductModelFromDomain(&products[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// Reindex rebuilds the catalog lookup indexes
func (r *GormProductRepository) Reindex(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("REINDEX productos").Error
}

func toProducts(rows []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Compile-time interface compliance check
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
