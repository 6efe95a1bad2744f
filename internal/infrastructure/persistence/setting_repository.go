package persistence

import (
	"context"
	"errors"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingRepository reads and writes app_settings
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// Get returns the value stored under key and whether it exists
func (r *GormSettingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var model models.SettingModel
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, true, nil
}

// Put stores value under key, replacing any previous value
func (r *GormSettingRepository) Put(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&models.SettingModel{Key: key, Value: value}).Error
}
