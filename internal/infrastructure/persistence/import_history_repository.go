package persistence

import (
	"context"
	"errors"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/bulk"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportHistoryRepository implements ImportHistoryRepository using GORM
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// FindByID finds an import history by ID
func (r *GormImportHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportHistory, error) {
	var model models.ImportHistoryModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Import", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRecent returns the newest import histories, optionally filtered by kind
func (r *GormImportHistoryRepository) ListRecent(ctx context.Context, kind *bulk.ImportKind, limit int) ([]*bulk.ImportHistory, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportHistoryModel{})
	if kind != nil {
		query = query.Where("kind = ?", string(*kind))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var historyModels []models.ImportHistoryModel
	if err := query.Order("created_at DESC").Find(&historyModels).Error; err != nil {
		return nil, err
	}

	histories := make([]*bulk.ImportHistory, len(historyModels))
	for i := range historyModels {
		histories[i] = historyModels[i].ToDomain()
	}
	return histories, nil
}

// Save saves an import history (create or update)
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	model := models.ImportHistoryModelFromDomain(history)
	return r.db.WithContext(ctx).Save(model).Error
}

// Compile-time interface compliance check
var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
