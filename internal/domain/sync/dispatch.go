package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DispatchStatus represents the status of a durable dispatch job
type DispatchStatus string

const (
	DispatchStatusPending    DispatchStatus = "PENDING"
	DispatchStatusProcessing DispatchStatus = "PROCESSING"
	DispatchStatusCompleted  DispatchStatus = "COMPLETED"
	DispatchStatusFailed     DispatchStatus = "FAILED"
	DispatchStatusDead       DispatchStatus = "DEAD"
)

// Default retry configuration for durable dispatch
const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = time.Second
)

// ---------------------------------------------------------------------------
// DispatchEnvelope
// ---------------------------------------------------------------------------

// DispatchEnvelope is an opaque work payload plus routing metadata handed to
// the dispatcher. The envelope itself is not persisted; the durable backend
// persists a DispatchJob derived from it.
type DispatchEnvelope struct {
	// Kind names the work type (e.g. "propagation", "backfill")
	Kind string
	// UserID is the owning user
	UserID uuid.UUID
	// Priority orders work in the queue; lower numbers run first
	Priority int
	// Attempts is the number of delivery attempts already made
	Attempts int
	// Payload is the opaque job body, JSON-encoded by the producer
	Payload []byte
}

// Dispatcher accepts work envelopes and routes them to a backing queue.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	Enqueue(ctx context.Context, env DispatchEnvelope) error
}

// ---------------------------------------------------------------------------
// DispatchJob (durable queue entry)
// ---------------------------------------------------------------------------

// DispatchJob is a durably persisted unit of dispatch work with bounded
// retry and exponential backoff
type DispatchJob struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Kind        string
	Priority    int
	Payload     []byte
	Status      DispatchStatus
	Attempts    int
	MaxAttempts int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDispatchJob creates a pending dispatch job from an envelope
func NewDispatchJob(env DispatchEnvelope) *DispatchJob {
	now := time.Now()
	return &DispatchJob{
		ID:          uuid.New(),
		UserID:      env.UserID,
		Kind:        env.Kind,
		Priority:    env.Priority,
		Payload:     env.Payload,
		Status:      DispatchStatusPending,
		Attempts:    env.Attempts,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Envelope rebuilds the dispatch envelope from the persisted job
func (j *DispatchJob) Envelope() DispatchEnvelope {
	return DispatchEnvelope{
		Kind:     j.Kind,
		UserID:   j.UserID,
		Priority: j.Priority,
		Attempts: j.Attempts,
		Payload:  j.Payload,
	}
}

// CanRetry returns true if the job can be retried
func (j *DispatchJob) CanRetry() bool {
	return j.Status == DispatchStatusFailed && j.Attempts < j.MaxAttempts
}

// MarkProcessing marks the job as being processed
func (j *DispatchJob) MarkProcessing() error {
	if j.Status != DispatchStatusPending && j.Status != DispatchStatusFailed {
		return errors.New("sync: can only mark pending or failed jobs as processing")
	}
	j.Status = DispatchStatusProcessing
	j.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted marks the job as successfully processed
func (j *DispatchJob) MarkCompleted() {
	now := time.Now()
	j.Status = DispatchStatusCompleted
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a failed attempt and schedules the next retry with
// exponential backoff (1s, 2s, 4s, ...). Exhausted jobs go dead.
func (j *DispatchJob) MarkFailed(errMsg string) {
	j.Attempts++
	j.LastError = errMsg
	j.UpdatedAt = time.Now()

	if j.Attempts >= j.MaxAttempts {
		j.Status = DispatchStatusDead
	} else {
		j.Status = DispatchStatusFailed
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(j.Attempts-1))
		nextRetry := time.Now().Add(backoff)
		j.NextRetryAt = &nextRetry
	}
}

// IsDead returns true if the job exhausted its attempts
func (j *DispatchJob) IsDead() bool {
	return j.Status == DispatchStatusDead
}

// ---------------------------------------------------------------------------
// DispatchJobRepository Interface
// ---------------------------------------------------------------------------

// DispatchJobRepository defines the persistence interface backing the
// durable dispatch queue
type DispatchJobRepository interface {
	// Save persists one or more dispatch jobs
	Save(ctx context.Context, jobs ...*DispatchJob) error
	// FindDue retrieves pending jobs plus failed jobs whose retry time has
	// passed, ordered by priority then creation time, up to limit
	FindDue(ctx context.Context, before time.Time, limit int) ([]*DispatchJob, error)
	// MarkProcessing atomically claims jobs and returns the claimed set
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*DispatchJob, error)
	// Update updates an existing job
	Update(ctx context.Context, job *DispatchJob) error
	// DeleteOlderThan removes completed jobs older than the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns job counts per status
	CountByStatus(ctx context.Context) (map[DispatchStatus]int64, error)
}
