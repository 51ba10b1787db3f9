package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBackfillJobRepository implements BackfillJobRepository using GORM
type GormBackfillJobRepository struct {
	db *gorm.DB
}

// NewGormBackfillJobRepository creates a new GormBackfillJobRepository
func NewGormBackfillJobRepository(db *gorm.DB) *GormBackfillJobRepository {
	return &GormBackfillJobRepository{db: db}
}

// Save creates or updates a job
func (r *GormBackfillJobRepository) Save(ctx context.Context, job *backfill.BackfillJob) error {
	model := models.BackfillJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a job by its ID
func (r *GormBackfillJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*backfill.BackfillJob, error) {
	var model models.BackfillJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, backfill.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser returns a user's jobs, newest first
func (r *GormBackfillJobRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]backfill.BackfillJob, error) {
	var jobModels []models.BackfillJobModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]backfill.BackfillJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

// UpdateIf persists the job's mutable fields only if its current status is
// in the allowed set. The same WHERE-clause compare-and-set as CancelIf,
// from the worker's side: a progress or completion write racing a
// cancellation matches zero rows instead of resurrecting the job.
func (r *GormBackfillJobRepository) UpdateIf(ctx context.Context, job *backfill.BackfillJob, allowed []backfill.JobStatus) (bool, error) {
	if len(allowed) == 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.BackfillJobModel{}).
		Where("id = ? AND status IN ?", job.ID, allowed).
		Updates(map[string]any{
			"status":          job.Status,
			"progress":        job.Progress,
			"processed_items": job.ProcessedItems,
			"failed_items":    job.FailedItems,
			"error_message":   job.ErrorMessage,
			"completed_at":    job.CompletedAt,
			"updated_at":      job.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CancelIf atomically cancels the job only if its current status is in the
// allowed set. The status guard in the UPDATE's WHERE clause is the
// compare-and-set: a racing worker that already moved the job to a terminal
// state makes the update match zero rows.
func (r *GormBackfillJobRepository) CancelIf(ctx context.Context, id uuid.UUID, allowed []backfill.JobStatus) (bool, error) {
	if len(allowed) == 0 {
		return false, nil
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.BackfillJobModel{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(map[string]any{
			"status":       backfill.JobStatusCancelled,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var _ backfill.BackfillJobRepository = (*GormBackfillJobRepository)(nil)
