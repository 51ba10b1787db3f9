package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBackfillItemRepository implements BackfillItemRepository using GORM
type GormBackfillItemRepository struct {
	db *gorm.DB
}

// NewGormBackfillItemRepository creates a new GormBackfillItemRepository
func NewGormBackfillItemRepository(db *gorm.DB) *GormBackfillItemRepository {
	return &GormBackfillItemRepository{db: db}
}

// SaveBatch persists a batch of items
func (r *GormBackfillItemRepository) SaveBatch(ctx context.Context, items []*backfill.BackfillItem) error {
	if len(items) == 0 {
		return nil
	}
	itemModels := make([]*models.BackfillItemModel, len(items))
	for i, item := range items {
		itemModels[i] = models.BackfillItemModelFromDomain(item)
	}
	return r.db.WithContext(ctx).CreateInBatches(itemModels, 100).Error
}

// FindByJob returns a job's items
func (r *GormBackfillItemRepository) FindByJob(ctx context.Context, jobID uuid.UUID) ([]backfill.BackfillItem, error) {
	var itemModels []models.BackfillItemModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]backfill.BackfillItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Update updates an existing item
func (r *GormBackfillItemRepository) Update(ctx context.Context, item *backfill.BackfillItem) error {
	model := models.BackfillItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ backfill.BackfillItemRepository = (*GormBackfillItemRepository)(nil)
