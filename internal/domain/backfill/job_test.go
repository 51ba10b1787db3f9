package backfill

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, totalItems int) *BackfillJob {
	t.Helper()
	job, err := NewBackfillJob(uuid.New(), uuid.New(), JobTypeBulkAIBackfill,
		PriorityHigh, totalItems, JobMetadata{PlatformType: platform.TypeEbay})
	require.NoError(t, err)
	return job
}

func TestJobType_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		jobType JobType
		want    bool
	}{
		{"data_gap_analysis is valid", JobTypeDataGapAnalysis, true},
		{"bulk_ai_backfill is valid", JobTypeBulkAIBackfill, true},
		{"photo_request is valid", JobTypePhotoRequest, true},
		{"description_generation is valid", JobTypeDescriptionGeneration, true},
		{"tag_generation is valid", JobTypeTagGeneration, true},
		{"barcode_scanning is valid", JobTypeBarcodeScanning, true},
		{"unknown type", JobType("video_generation"), false},
		{"empty type", JobType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.jobType.IsValid())
		})
	}
}

func TestJobStatus_Lifecycle(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusInProgress.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())

	assert.True(t, JobStatusPending.IsCancellable())
	assert.True(t, JobStatusInProgress.IsCancellable())
	assert.False(t, JobStatusCompleted.IsCancellable())
}

func TestPriority_QueuePriority(t *testing.T) {
	assert.Equal(t, 1, PriorityUrgent.QueuePriority())
	assert.Equal(t, 2, PriorityHigh.QueuePriority())
	assert.Equal(t, 3, PriorityMedium.QueuePriority())
	assert.Equal(t, 4, PriorityLow.QueuePriority())
	assert.Equal(t, 3, Priority("unknown").QueuePriority())
}

func TestNewBackfillJob_Validation(t *testing.T) {
	_, err := NewBackfillJob(uuid.Nil, uuid.New(), JobTypeBulkAIBackfill, PriorityLow, 0, JobMetadata{})
	assert.ErrorIs(t, err, ErrJobInvalidUserID)

	_, err = NewBackfillJob(uuid.New(), uuid.New(), JobType("bogus"), PriorityLow, 0, JobMetadata{})
	assert.ErrorIs(t, err, ErrJobInvalidType)
}

func TestBackfillJob_StartOnlyFromPending(t *testing.T) {
	job := newTestJob(t, 5)

	require.NoError(t, job.Start())
	assert.Equal(t, JobStatusInProgress, job.Status)

	assert.ErrorIs(t, job.Start(), ErrJobAlreadyTerminal)
}

func TestBackfillJob_UpdateProgress(t *testing.T) {
	job := newTestJob(t, 4)

	job.UpdateProgress(1, 1)
	assert.Equal(t, 50, job.Progress)

	job.UpdateProgress(3, 1)
	assert.Equal(t, 100, job.Progress)

	// Progress is clamped even if counts overshoot the total
	job.UpdateProgress(5, 1)
	assert.Equal(t, 100, job.Progress)
}

func TestBackfillJob_UpdateProgressWithZeroTotal(t *testing.T) {
	job := newTestJob(t, 0)

	job.UpdateProgress(0, 0)

	assert.Equal(t, 0, job.Progress)
}

func TestBackfillJob_Complete(t *testing.T) {
	job := newTestJob(t, 2)
	require.NoError(t, job.Start())

	job.Complete()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestBackfillJob_Cancel(t *testing.T) {
	job := newTestJob(t, 2)

	require.NoError(t, job.Cancel())
	assert.Equal(t, JobStatusCancelled, job.Status)
	require.NotNil(t, job.CompletedAt)

	assert.ErrorIs(t, job.Cancel(), ErrJobNotCancellable)
}

func TestBackfillJob_CancelAfterCompleteFails(t *testing.T) {
	job := newTestJob(t, 2)
	job.Complete()

	assert.ErrorIs(t, job.Cancel(), ErrJobNotCancellable)
}

func TestGapAnalysis_GapCount(t *testing.T) {
	analysis := GapAnalysis{
		MissingPhotos:       7,
		MissingDescriptions: 3,
		MissingBarcodes:     1,
		MissingPricing:      0,
	}

	assert.Equal(t, 7, analysis.GapCount(DataTypePhotos))
	assert.Equal(t, 3, analysis.GapCount(DataTypeDescriptions))
	assert.Equal(t, 1, analysis.GapCount(DataTypeBarcodes))
	assert.Equal(t, 0, analysis.GapCount(DataTypePricing))
	assert.Equal(t, 0, analysis.GapCount(DataType("videos")))
}
