package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockContentGenerator is a mock implementation of ContentGenerator
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) Generate(ctx context.Context, item *backfill.BackfillItem) (backfill.GeneratedContent, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(backfill.GeneratedContent), args.Error(1)
}

func executorJob(t *testing.T, totalItems int) *backfill.BackfillJob {
	t.Helper()
	job, err := backfill.NewBackfillJob(uuid.New(), uuid.New(), backfill.JobTypeDescriptionGeneration,
		backfill.PriorityMedium, totalItems, backfill.JobMetadata{PlatformType: platform.TypeShopify})
	require.NoError(t, err)
	return job
}

func executorPayload(t *testing.T, job *backfill.BackfillJob, dataTypes ...backfill.DataType) []byte {
	t.Helper()
	body, err := json.Marshal(JobDispatchPayload{
		JobID:        job.ID,
		UserID:       job.UserID,
		ConnectionID: job.ConnectionID,
		JobType:      job.Type,
		DataTypes:    dataTypes,
	})
	require.NoError(t, err)
	return body
}

func allowedStatuses(statuses ...backfill.JobStatus) any {
	return mock.MatchedBy(func(allowed []backfill.JobStatus) bool {
		if len(allowed) != len(statuses) {
			return false
		}
		for i, s := range statuses {
			if allowed[i] != s {
				return false
			}
		}
		return true
	})
}

func TestExecutor_GeneratesAndCompletes(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	generator := new(MockContentGenerator)
	executor := NewExecutor(jobs, items, generator, zap.NewNop())

	job := executorJob(t, 2)
	workItems := []backfill.BackfillItem{
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
	}

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, mock.Anything).Return(true, nil)
	items.On("FindByJob", mock.Anything, job.ID).Return(workItems, nil)
	items.On("Update", mock.Anything, mock.Anything).Return(nil)
	generator.On("Generate", mock.Anything, mock.Anything).
		Return(backfill.GeneratedContent{Value: "a generated description", Confidence: decimal.NewFromFloat(0.9)}, nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypeDescriptions))

	require.NoError(t, err)
	assert.Equal(t, backfill.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.ProcessedItems)
	assert.Equal(t, 0, job.FailedItems)
	assert.Equal(t, 100, job.Progress)
	generator.AssertNumberOfCalls(t, "Generate", 2)
	jobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExecutor_GenerationFailureCountsAsFailedItem(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	generator := new(MockContentGenerator)
	executor := NewExecutor(jobs, items, generator, zap.NewNop())

	job := executorJob(t, 1)
	item := backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeBarcodes, "")

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, mock.Anything).Return(true, nil)
	items.On("FindByJob", mock.Anything, job.ID).Return([]backfill.BackfillItem{*item}, nil)
	items.On("Update", mock.Anything, mock.Anything).Return(nil)
	generator.On("Generate", mock.Anything, mock.Anything).
		Return(backfill.GeneratedContent{}, errors.New("lookup service down"))

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypeBarcodes))

	require.NoError(t, err)
	assert.Equal(t, backfill.JobStatusCompleted, job.Status)
	assert.Equal(t, 0, job.ProcessedItems)
	assert.Equal(t, 1, job.FailedItems)
}

func TestExecutor_NilGeneratorSkipsItems(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	executor := NewExecutor(jobs, items, nil, zap.NewNop())

	job := executorJob(t, 1)
	item := backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypePhotos, "")

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, mock.Anything).Return(true, nil)
	items.On("FindByJob", mock.Anything, job.ID).Return([]backfill.BackfillItem{*item}, nil)
	items.On("Update", mock.Anything, mock.MatchedBy(func(i *backfill.BackfillItem) bool {
		return i.Status == backfill.ItemStatusSkipped
	})).Return(nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypePhotos))

	require.NoError(t, err)
	assert.Equal(t, backfill.JobStatusCompleted, job.Status)
	items.AssertExpectations(t)
}

func TestExecutor_CancelledJobIsNotResurrected(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	executor := NewExecutor(jobs, items, nil, zap.NewNop())

	job := executorJob(t, 3)
	require.NoError(t, job.Cancel())

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypePhotos))

	require.NoError(t, err)
	assert.Equal(t, backfill.JobStatusCancelled, job.Status)
	jobs.AssertNotCalled(t, "UpdateIf", mock.Anything, mock.Anything, mock.Anything)
	items.AssertNotCalled(t, "FindByJob", mock.Anything, mock.Anything)
}

func TestExecutor_CancellationBetweenItemsStopsWork(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	generator := new(MockContentGenerator)
	executor := NewExecutor(jobs, items, generator, zap.NewNop())

	job := executorJob(t, 3)
	workItems := []backfill.BackfillItem{
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
	}

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, allowedStatuses(backfill.JobStatusPending)).
		Return(true, nil).Once()
	// The first guarded progress write misses: the job was cancelled while
	// the item ran. Work must stop after the item in flight.
	jobs.On("UpdateIf", mock.Anything, job, allowedStatuses(backfill.JobStatusInProgress)).
		Return(false, nil).Once()
	items.On("FindByJob", mock.Anything, job.ID).Return(workItems, nil)
	items.On("Update", mock.Anything, mock.Anything).Return(nil)
	generator.On("Generate", mock.Anything, mock.Anything).
		Return(backfill.GeneratedContent{Value: "text", Confidence: decimal.NewFromFloat(0.9)}, nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypeDescriptions))

	require.NoError(t, err)
	generator.AssertNumberOfCalls(t, "Generate", 1)
	items.AssertNumberOfCalls(t, "Update", 1)
	// The worker never writes a completed status over the cancellation
	assert.NotEqual(t, backfill.JobStatusCompleted, job.Status)
	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExecutor_CompletionYieldsToConcurrentCancel(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	executor := NewExecutor(jobs, items, nil, zap.NewNop())

	job := executorJob(t, 1)
	require.NoError(t, job.Start())

	// Cancelled between the last progress write and the final completion
	// write: the completion must match zero rows and give up.
	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, allowedStatuses(backfill.JobStatusInProgress)).
		Return(false, nil)
	items.On("FindByJob", mock.Anything, job.ID).Return([]backfill.BackfillItem{}, nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypePhotos))

	require.NoError(t, err)
	jobs.AssertNumberOfCalls(t, "UpdateIf", 1)
	jobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExecutor_SkipsItemsOutsideRequestedTypes(t *testing.T) {
	jobs := new(MockBackfillJobRepository)
	items := new(MockBackfillItemRepository)
	generator := new(MockContentGenerator)
	executor := NewExecutor(jobs, items, generator, zap.NewNop())

	job := executorJob(t, 1)
	workItems := []backfill.BackfillItem{
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypeDescriptions, ""),
		*backfill.NewBackfillItem(job.ID, uuid.New(), backfill.DataTypePricing, ""),
	}

	jobs.On("FindByID", mock.Anything, job.ID).Return(job, nil)
	jobs.On("UpdateIf", mock.Anything, job, mock.Anything).Return(true, nil)
	items.On("FindByJob", mock.Anything, job.ID).Return(workItems, nil)
	items.On("Update", mock.Anything, mock.Anything).Return(nil)
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(i *backfill.BackfillItem) bool {
		return i.DataType == backfill.DataTypeDescriptions
	})).Return(backfill.GeneratedContent{Value: "text", Confidence: decimal.NewFromFloat(0.8)}, nil)

	err := executor.Execute(context.Background(), executorPayload(t, job, backfill.DataTypeDescriptions))

	require.NoError(t, err)
	generator.AssertNumberOfCalls(t, "Generate", 1)
}
