package backfill

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Backfill Errors
// ---------------------------------------------------------------------------

var (
	ErrJobNotFound         = errors.New("backfill: job not found")
	ErrJobInvalidType      = errors.New("backfill: invalid job type")
	ErrJobInvalidUserID    = errors.New("backfill: invalid user ID")
	ErrJobNoDataTypes      = errors.New("backfill: at least one data type is required")
	ErrJobNotCancellable   = errors.New("backfill: job is not in a cancellable state")
	ErrJobAlreadyTerminal  = errors.New("backfill: job already reached a terminal state")
	ErrAnalysisUnavailable = errors.New("backfill: gap analysis failed")
)

// ---------------------------------------------------------------------------
// JobType / JobStatus / Priority / DataType
// ---------------------------------------------------------------------------

// JobType represents the kind of remediation work a backfill job performs
type JobType string

const (
	JobTypeDataGapAnalysis       JobType = "data_gap_analysis"
	JobTypeBulkAIBackfill        JobType = "bulk_ai_backfill"
	JobTypePhotoRequest          JobType = "photo_request"
	JobTypeDescriptionGeneration JobType = "description_generation"
	JobTypeTagGeneration         JobType = "tag_generation"
	JobTypeBarcodeScanning       JobType = "barcode_scanning"
)

// IsValid returns true if the job type is valid
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeDataGapAnalysis, JobTypeBulkAIBackfill, JobTypePhotoRequest,
		JobTypeDescriptionGeneration, JobTypeTagGeneration, JobTypeBarcodeScanning:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a backfill job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal returns true for completed, failed and cancelled
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCancellable returns true while cancellation is still legal
func (s JobStatus) IsCancellable() bool {
	return s == JobStatusPending || s == JobStatusInProgress
}

// Priority represents the urgency of remediation work
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// QueuePriority maps the priority to a numeric queue priority.
// Lower numbers run first.
func (p Priority) QueuePriority() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 3
	}
}

// DataType represents one category of listing data a job remediates
type DataType string

const (
	DataTypePhotos       DataType = "photos"
	DataTypeDescriptions DataType = "descriptions"
	DataTypeBarcodes     DataType = "barcodes"
	DataTypePricing      DataType = "pricing"
)

// IsValid returns true if the data type is valid
func (d DataType) IsValid() bool {
	switch d {
	case DataTypePhotos, DataTypeDescriptions, DataTypeBarcodes, DataTypePricing:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// BackfillJob Aggregate
// ---------------------------------------------------------------------------

// JobMetadata carries analysis context alongside the job
type JobMetadata struct {
	// PlatformType is the target connection's platform
	PlatformType platform.Type `json:"platform_type"`
	// MissingDataTypes lists the data categories this job remediates
	MissingDataTypes []DataType `json:"missing_data_types"`
	// EstimatedCost is the projected remediation cost in USD
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	// EstimatedHours is the projected processing time in hours
	EstimatedHours int `json:"estimated_hours"`
}

// BackfillJob is a persisted remediation job. It is created pending,
// advanced by the remediation worker, and terminal once completed, failed
// or cancelled.
type BackfillJob struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConnectionID   uuid.UUID
	Type           JobType
	Status         JobStatus
	Priority       Priority
	Progress       int
	TotalItems     int
	ProcessedItems int
	FailedItems    int
	Metadata       JobMetadata
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// NewBackfillJob creates a pending backfill job
func NewBackfillJob(
	userID uuid.UUID,
	connectionID uuid.UUID,
	jobType JobType,
	priority Priority,
	totalItems int,
	metadata JobMetadata,
) (*BackfillJob, error) {
	if userID == uuid.Nil {
		return nil, ErrJobInvalidUserID
	}
	if !jobType.IsValid() {
		return nil, ErrJobInvalidType
	}

	now := time.Now()
	return &BackfillJob{
		ID:           uuid.New(),
		UserID:       userID,
		ConnectionID: connectionID,
		Type:         jobType,
		Status:       JobStatusPending,
		Priority:     priority,
		TotalItems:   totalItems,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Start moves the job from pending to in_progress
func (j *BackfillJob) Start() error {
	if j.Status != JobStatusPending {
		return ErrJobAlreadyTerminal
	}
	j.Status = JobStatusInProgress
	j.UpdatedAt = time.Now()
	return nil
}

// UpdateProgress records processed/failed counts and recomputes the
// progress percentage
func (j *BackfillJob) UpdateProgress(processed, failed int) {
	j.ProcessedItems = processed
	j.FailedItems = failed
	if j.TotalItems > 0 {
		j.Progress = (processed + failed) * 100 / j.TotalItems
		if j.Progress > 100 {
			j.Progress = 100
		}
	}
	j.UpdatedAt = time.Now()
}

// Complete marks the job completed
func (j *BackfillJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail marks the job failed with an error message
func (j *BackfillJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Cancel marks the job cancelled. Only legal from pending or in_progress;
// the authoritative compare-and-set happens at the repository level.
func (j *BackfillJob) Cancel() error {
	if !j.Status.IsCancellable() {
		return ErrJobNotCancellable
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// BackfillJobRepository Interface
// ---------------------------------------------------------------------------

// BackfillJobRepository defines the persistence interface for backfill jobs
type BackfillJobRepository interface {
	// Save creates or updates a job
	Save(ctx context.Context, job *BackfillJob) error

	// FindByID finds a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*BackfillJob, error)

	// FindByUser returns a user's jobs, newest first
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]BackfillJob, error)

	// UpdateIf persists the job's mutable fields only if its current status
	// is in the allowed set, returning whether the update happened. Workers
	// use this for progress and completion writes so they cannot resurrect
	// a job cancelled concurrently.
	UpdateIf(ctx context.Context, job *BackfillJob, allowed []JobStatus) (bool, error)

	// CancelIf atomically cancels the job only if its current status is in
	// the allowed set, returning whether the transition happened.
	// Implementations must use a compare-and-set so a racing worker update
	// cannot resurrect a cancelled job.
	CancelIf(ctx context.Context, id uuid.UUID, allowed []JobStatus) (bool, error)
}
