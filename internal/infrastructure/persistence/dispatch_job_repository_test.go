package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DispatchJobModel{}))
	return db
}

func newDispatchJob(priority int) *sync.DispatchJob {
	return sync.NewDispatchJob(sync.DispatchEnvelope{
		Kind:     sync.DispatchKindPropagation,
		UserID:   uuid.New(),
		Priority: priority,
		Payload:  []byte(`{"entity_id":"x"}`),
	})
}

func TestGormDispatchJobRepository_FindDueOrdering(t *testing.T) {
	repo := NewGormDispatchJobRepository(setupDispatchTestDB(t))
	ctx := context.Background()

	low := newDispatchJob(3)
	high := newDispatchJob(1)
	require.NoError(t, repo.Save(ctx, low, high))

	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, high.ID, due[0].ID)
	assert.Equal(t, low.ID, due[1].ID)
}

func TestGormDispatchJobRepository_FindDueExcludesFutureRetries(t *testing.T) {
	repo := NewGormDispatchJobRepository(setupDispatchTestDB(t))
	ctx := context.Background()

	failed := newDispatchJob(2)
	failed.MarkFailed("transient")
	retryAt := time.Now().Add(time.Hour)
	failed.NextRetryAt = &retryAt
	require.NoError(t, repo.Save(ctx, failed))

	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindDue(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestGormDispatchJobRepository_MarkProcessingClaims(t *testing.T) {
	repo := NewGormDispatchJobRepository(setupDispatchTestDB(t))
	ctx := context.Background()

	job := newDispatchJob(2)
	require.NoError(t, repo.Save(ctx, job))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{job.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, sync.DispatchStatusProcessing, claimed[0].Status)

	// Once claimed the job no longer shows up as due
	due, err := repo.FindDue(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestGormDispatchJobRepository_CompletedLifecycle(t *testing.T) {
	repo := NewGormDispatchJobRepository(setupDispatchTestDB(t))
	ctx := context.Background()

	job := newDispatchJob(1)
	require.NoError(t, repo.Save(ctx, job))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{job.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	claimed[0].MarkCompleted()
	require.NoError(t, repo.Update(ctx, claimed[0]))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[sync.DispatchStatusCompleted])

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestGormDispatchJobRepository_DeadJobsStayOut(t *testing.T) {
	repo := NewGormDispatchJobRepository(setupDispatchTestDB(t))
	ctx := context.Background()

	job := newDispatchJob(2)
	for i := 0; i < sync.DefaultMaxAttempts; i++ {
		job.MarkFailed("boom")
	}
	require.True(t, job.IsDead())
	require.NoError(t, repo.Save(ctx, job))

	due, err := repo.FindDue(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
