package backfill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus represents the lifecycle state of one remediation item
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
	ItemStatusSkipped    ItemStatus = "skipped"
)

// IsTerminal returns true for completed, failed and skipped
func (s ItemStatus) IsTerminal() bool {
	switch s {
	case ItemStatusCompleted, ItemStatusFailed, ItemStatusSkipped:
		return true
	default:
		return false
	}
}

// BackfillItem is one (job, entity, data type) unit of remediation work
type BackfillItem struct {
	ID     uuid.UUID
	JobID  uuid.UUID
	// EntityID is the variant the item remediates
	EntityID uuid.UUID
	DataType DataType
	Status   ItemStatus
	// OriginalValue is the value before remediation (may be empty)
	OriginalValue string
	// GeneratedValue is the value produced by remediation
	GeneratedValue string
	// Confidence scores generated content in [0,1]
	Confidence decimal.Decimal
	// ProcessingTime is how long remediation of this item took
	ProcessingTime time.Duration
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBackfillItem creates a pending item for a job
func NewBackfillItem(jobID, entityID uuid.UUID, dataType DataType, originalValue string) *BackfillItem {
	now := time.Now()
	return &BackfillItem{
		ID:            uuid.New(),
		JobID:         jobID,
		EntityID:      entityID,
		DataType:      dataType,
		Status:        ItemStatusPending,
		OriginalValue: originalValue,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Complete records a generated value and moves the item to completed
func (i *BackfillItem) Complete(value string, confidence decimal.Decimal, took time.Duration) {
	i.Status = ItemStatusCompleted
	i.GeneratedValue = value
	i.Confidence = confidence
	i.ProcessingTime = took
	i.UpdatedAt = time.Now()
}

// Fail moves the item to failed
func (i *BackfillItem) Fail(took time.Duration) {
	i.Status = ItemStatusFailed
	i.ProcessingTime = took
	i.UpdatedAt = time.Now()
}

// Skip moves the item to skipped
func (i *BackfillItem) Skip() {
	i.Status = ItemStatusSkipped
	i.UpdatedAt = time.Now()
}

// BackfillItemRepository defines the persistence interface for items
type BackfillItemRepository interface {
	// SaveBatch persists a batch of items
	SaveBatch(ctx context.Context, items []*BackfillItem) error

	// FindByJob returns a job's items
	FindByJob(ctx context.Context, jobID uuid.UUID) ([]BackfillItem, error)

	// Update updates an existing item
	Update(ctx context.Context, item *BackfillItem) error
}
