package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConflictEventRepository implements the append-only
// ConflictEventRepository using GORM
type GormConflictEventRepository struct {
	db *gorm.DB
}

// NewGormConflictEventRepository creates a new GormConflictEventRepository
func NewGormConflictEventRepository(db *gorm.DB) *GormConflictEventRepository {
	return &GormConflictEventRepository{db: db}
}

// Append persists a new conflict record. Create, never Save: records are
// append-only and must not overwrite an existing row.
func (r *GormConflictEventRepository) Append(ctx context.Context, record *sync.ConflictEvent) error {
	model := models.ConflictEventModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByUser returns conflict records for a user, newest first
func (r *GormConflictEventRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	var eventModels []models.ConflictEventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("detected_at DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	return toDomainEvents(eventModels), nil
}

// FindByEntity returns conflict records for one entity, newest first
func (r *GormConflictEventRepository) FindByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	var eventModels []models.ConflictEventModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("detected_at DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	return toDomainEvents(eventModels), nil
}

// FindPendingReview returns records whose resolution action is user_review
func (r *GormConflictEventRepository) FindPendingReview(ctx context.Context, userID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	var eventModels []models.ConflictEventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND resolution_action = ?", userID, string(sync.ResolutionUserReview)).
		Order("detected_at DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	return toDomainEvents(eventModels), nil
}

func toDomainEvents(eventModels []models.ConflictEventModel) []sync.ConflictEvent {
	events := make([]sync.ConflictEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events
}

var _ sync.ConflictEventRepository = (*GormConflictEventRepository)(nil)
