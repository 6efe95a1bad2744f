package persistence

import (
	"context"
	"errors"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDeliveryNoteRepository implements DeliveryNoteRepository using GORM
type GormDeliveryNoteRepository struct {
	db *gorm.DB
}

// NewGormDeliveryNoteRepository creates a new GormDeliveryNoteRepository
func NewGormDeliveryNoteRepository(db *gorm.DB) *GormDeliveryNoteRepository {
	return &GormDeliveryNoteRepository{db: db}
}

// FindByID finds a delivery note by ID
func (r *GormDeliveryNoteRepository) FindByID(ctx context.Context, id int64) (*receiving.DeliveryNote, error) {
	var model models.DeliveryNoteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Delivery note", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLabel finds a delivery note by its external label
func (r *GormDeliveryNoteRepository) FindByLabel(ctx context.Context, label string) (*receiving.DeliveryNote, error) {
	var model models.DeliveryNoteModel
	if err := r.db.WithContext(ctx).First(&model, "etiqueta = ?", label).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Delivery note", label)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListActive lists non-archived notes, newest first, with line counters
func (r *GormDeliveryNoteRepository) ListActive(ctx context.Context) ([]receiving.NoteOverview, error) {
	var rows []models.NoteOverviewRow
	if err := r.db.WithContext(ctx).
		Table("albaranes AS a").
		Select(`a.id, a.etiqueta, a.created_at, a.finished_at, a.grupo, a.archived_at,
			COUNT(i.id) AS line_count,
			COALESCE(SUM(i.bultos_esperados), 0) AS expected_total,
			COALESCE(SUM(i.bultos_revisados), 0) AS counted_total`).
		Joins("LEFT JOIN albaran_items AS i ON i.albaran_id = a.id").
		Where("a.archived_at IS NULL").
		Group("a.id").
		Order("a.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]receiving.NoteOverview, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a new note and sets its ID
func (r *GormDeliveryNoteRepository) Create(ctx context.Context, note *receiving.DeliveryNote) error {
	model := models.DeliveryNoteModelFromDomain(note)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Delivery note "+note.Label+" already exists")
		}
		return err
	}
	note.ID = model.ID
	return nil
}

// Save updates the header fields of an existing note
func (r *GormDeliveryNoteRepository) Save(ctx context.Context, note *receiving.DeliveryNote) error {
	model := models.DeliveryNoteModelFromDomain(note)
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryNoteModel{}).
		Where("id = ?", note.ID).
		Updates(map[string]any{
			"etiqueta":    model.Etiqueta,
			"created_at":  model.CreatedAt,
			"finished_at": model.FinishedAt,
			"grupo":       model.Grupo,
			"archived_at": model.ArchivedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Delivery note", note.ID)
	}
	return nil
}

// Delete removes the note header
func (r *GormDeliveryNoteRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.DeliveryNoteModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Delivery note", id)
	}
	return nil
}

// GormDeliveryLineRepository implements DeliveryLineRepository using GORM
type GormDeliveryLineRepository struct {
	db *gorm.DB
}

// NewGormDeliveryLineRepository creates a new GormDeliveryLineRepository
func NewGormDeliveryLineRepository(db *gorm.DB) *GormDeliveryLineRepository {
	return &GormDeliveryLineRepository{db: db}
}

// FindByID finds a line by ID
func (r *GormDeliveryLineRepository) FindByID(ctx context.Context, id int64) (*receiving.DeliveryLine, error) {
	var model models.DeliveryLineModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Delivery line", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByNote returns the lines of a note in storage order
func (r *GormDeliveryLineRepository) ListByNote(ctx context.Context, noteID int64) ([]receiving.DeliveryLine, error) {
	var rows []models.DeliveryLineModel
	if err := r.db.WithContext(ctx).
		Where("albaran_id = ?", noteID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]receiving.DeliveryLine, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindByNoteAndItem finds the first line of a note that references itemID
func (r *GormDeliveryLineRepository) FindByNoteAndItem(ctx context.Context, noteID, itemID int64) (*receiving.DeliveryLine, error) {
	var model models.DeliveryLineModel
	if err := r.db.WithContext(ctx).
		Where("albaran_id = ? AND item_id = ?", noteID, itemID).
		Order("id ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Delivery line for item", itemID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a line and sets its ID. The parent note must still be open.
func (r *GormDeliveryLineRepository) Create(ctx context.Context, line *receiving.DeliveryLine) error {
	model := models.DeliveryLineModelFromDomain(line)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note models.DeliveryNoteModel
		if err := tx.Select("id", "etiqueta", "finished_at").First(&note, "id = ?", line.NoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewNotFoundError("Delivery note", line.NoteID)
			}
			return err
		}
		if note.FinishedAt != nil {
			return noteClosed(note.Etiqueta)
		}
		return tx.Create(model).Error
	})
	if err != nil {
		return err
	}
	line.ID = model.ID
	return nil
}

// CreateBatch inserts several lines
func (r *GormDeliveryLineRepository) CreateBatch(ctx context.Context, lines []*receiving.DeliveryLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.DeliveryLineModel, len(lines))
	for i, l := range lines {
		rows[i] = models.DeliveryLineModelFromDomain(l)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return err
	}
	for i, l := range lines {
		l.ID = rows[i].ID
	}
	return nil
}

// UpdateCounted persists the counted quantity of a line. Lines of a
// finalized note are left unchanged and yield ErrInvalidState.
func (r *GormDeliveryLineRepository) UpdateCounted(ctx context.Context, id int64, counted int) error {
	db := r.db.WithContext(ctx)
	result := db.
		Model(&models.DeliveryLineModel{}).
		Where("id = ? AND albaran_id IN (SELECT id FROM albaranes WHERE finished_at IS NULL)", id).
		Update("bultos_revisados", counted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var note models.DeliveryNoteModel
	err := db.Table("albaranes AS a").
		Select("a.id, a.etiqueta").
		Joins("JOIN albaran_items AS i ON i.albaran_id = a.id").
		Where("i.id = ?", id).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError("Delivery line", id)
	}
	if err != nil {
		return err
	}
	return noteClosed(note.Etiqueta)
}

func noteClosed(label string) error {
	return shared.NewDomainError(shared.CodeInvalidState, "Delivery note "+label+" is finalized")
}

// DeleteByNote removes every line of a note
func (r *GormDeliveryLineRepository) DeleteByNote(ctx context.Context, noteID int64) error {
	return r.db.WithContext(ctx).Delete(&models.DeliveryLineModel{}, "albaran_id = ?", noteID).Error
}

// Compile-time interface compliance checks
var (
	_ receiving.DeliveryNoteRepository = (*GormDeliveryNoteRepository)(nil)
	_ receiving.DeliveryLineRepository = (*GormDeliveryLineRepository)(nil)
)
