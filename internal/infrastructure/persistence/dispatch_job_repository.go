package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDispatchJobRepository implements DispatchJobRepository using GORM
type GormDispatchJobRepository struct {
	db *gorm.DB
}

// NewGormDispatchJobRepository creates a new GormDispatchJobRepository
func NewGormDispatchJobRepository(db *gorm.DB) *GormDispatchJobRepository {
	return &GormDispatchJobRepository{db: db}
}

// Save persists one or more dispatch jobs
func (r *GormDispatchJobRepository) Save(ctx context.Context, jobs ...*sync.DispatchJob) error {
	if len(jobs) == 0 {
		return nil
	}
	jobModels := make([]*models.DispatchJobModel, len(jobs))
	for i, job := range jobs {
		jobModels[i] = models.DispatchJobModelFromDomain(job)
	}
	return r.db.WithContext(ctx).Save(jobModels).Error
}

// FindDue retrieves pending jobs plus failed jobs whose retry time has
// passed, ordered by priority then creation time
func (r *GormDispatchJobRepository) FindDue(ctx context.Context, before time.Time, limit int) ([]*sync.DispatchJob, error) {
	var jobModels []models.DispatchJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_retry_at <= ?)",
			sync.DispatchStatusPending, sync.DispatchStatusFailed, before).
		Order("priority ASC, created_at ASC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*sync.DispatchJob, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// MarkProcessing atomically claims jobs and returns the claimed set.
// The status guard in the WHERE clause keeps two pollers from claiming
// the same job.
func (r *GormDispatchJobRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*sync.DispatchJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*sync.DispatchJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DispatchJobModel{}).
			Where("id IN ? AND status IN ?", ids,
				[]sync.DispatchStatus{sync.DispatchStatusPending, sync.DispatchStatusFailed}).
			Updates(map[string]any{
				"status":     sync.DispatchStatusProcessing,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}

		var jobModels []models.DispatchJobModel
		if err := tx.
			Where("id IN ? AND status = ?", ids, sync.DispatchStatusProcessing).
			Find(&jobModels).Error; err != nil {
			return err
		}

		claimed = make([]*sync.DispatchJob, len(jobModels))
		for i := range jobModels {
			claimed[i] = jobModels[i].ToDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update updates an existing job
func (r *GormDispatchJobRepository) Update(ctx context.Context, job *sync.DispatchJob) error {
	model := models.DispatchJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteOlderThan removes completed jobs older than the given time
func (r *GormDispatchJobRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", sync.DispatchStatusCompleted, before).
		Delete(&models.DispatchJobModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns job counts per status
func (r *GormDispatchJobRepository) CountByStatus(ctx context.Context) (map[sync.DispatchStatus]int64, error) {
	type statusCount struct {
		Status sync.DispatchStatus
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.DispatchJobModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[sync.DispatchStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ sync.DispatchJobRepository = (*GormDispatchJobRepository)(nil)
