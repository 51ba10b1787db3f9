package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/backfill"
)

// ---------------------------------------------------------------------------
// BackfillJobModel
// ---------------------------------------------------------------------------

// BackfillJobModel is the persistence model for the BackfillJob aggregate.
type BackfillJobModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID          `gorm:"type:uuid;not null;index:idx_backfill_jobs_user"`
	ConnectionID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_backfill_jobs_connection"`
	Type           backfill.JobType   `gorm:"type:varchar(30);not null"`
	Status         backfill.JobStatus `gorm:"type:varchar(20);not null;index:idx_backfill_jobs_status"`
	Priority       backfill.Priority  `gorm:"type:varchar(10);not null"`
	Progress       int                `gorm:"not null;default:0"`
	TotalItems     int                `gorm:"not null;default:0"`
	ProcessedItems int                `gorm:"not null;default:0"`
	FailedItems    int                `gorm:"not null;default:0"`
	MetadataJSON   string             `gorm:"type:jsonb;column:metadata"`
	ErrorMessage   string             `gorm:"type:text"`
	CreatedAt      time.Time          `gorm:"not null;index"`
	UpdatedAt      time.Time          `gorm:"not null"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (BackfillJobModel) TableName() string {
	return "backfill_jobs"
}

// ToDomain converts the persistence model to a domain BackfillJob.
func (m *BackfillJobModel) ToDomain() *backfill.BackfillJob {
	job := &backfill.BackfillJob{
		ID:             m.ID,
		UserID:         m.UserID,
		ConnectionID:   m.ConnectionID,
		Type:           m.Type,
		Status:         m.Status,
		Priority:       m.Priority,
		Progress:       m.Progress,
		TotalItems:     m.TotalItems,
		ProcessedItems: m.ProcessedItems,
		FailedItems:    m.FailedItems,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CompletedAt:    m.CompletedAt,
	}

	if m.MetadataJSON != "" {
		var metadata backfill.JobMetadata
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			job.Metadata = metadata
		}
	}

	return job
}

// FromDomain populates the persistence model from a domain BackfillJob.
func (m *BackfillJobModel) FromDomain(j *backfill.BackfillJob) {
	m.ID = j.ID
	m.UserID = j.UserID
	m.ConnectionID = j.ConnectionID
	m.Type = j.Type
	m.Status = j.Status
	m.Priority = j.Priority
	m.Progress = j.Progress
	m.TotalItems = j.TotalItems
	m.ProcessedItems = j.ProcessedItems
	m.FailedItems = j.FailedItems
	m.ErrorMessage = j.ErrorMessage
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
	m.CompletedAt = j.CompletedAt

	if jsonBytes, err := json.Marshal(j.Metadata); err == nil {
		m.MetadataJSON = string(jsonBytes)
	}
}

// BackfillJobModelFromDomain creates a new persistence model from a job.
func BackfillJobModelFromDomain(j *backfill.BackfillJob) *BackfillJobModel {
	m := &BackfillJobModel{}
	m.FromDomain(j)
	return m
}

// ---------------------------------------------------------------------------
// BackfillItemModel
// ---------------------------------------------------------------------------

// BackfillItemModel is the persistence model for one remediation item.
type BackfillItemModel struct {
	ID               uuid.UUID           `gorm:"type:uuid;primary_key"`
	JobID            uuid.UUID           `gorm:"type:uuid;not null;index:idx_backfill_items_job"`
	EntityID         uuid.UUID           `gorm:"type:uuid;not null;index:idx_backfill_items_entity"`
	DataType         backfill.DataType   `gorm:"type:varchar(20);not null"`
	Status           backfill.ItemStatus `gorm:"type:varchar(20);not null"`
	OriginalValue    string              `gorm:"type:text"`
	GeneratedValue   string              `gorm:"type:text"`
	Confidence       decimal.Decimal     `gorm:"type:decimal(4,3);not null;default:0"`
	ProcessingTimeMs int64               `gorm:"not null;default:0"`
	CreatedAt        time.Time           `gorm:"not null"`
	UpdatedAt        time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BackfillItemModel) TableName() string {
	return "backfill_items"
}

// ToDomain converts the persistence model to a domain BackfillItem.
func (m *BackfillItemModel) ToDomain() *backfill.BackfillItem {
	return &backfill.BackfillItem{
		ID:             m.ID,
		JobID:          m.JobID,
		EntityID:       m.EntityID,
		DataType:       m.DataType,
		Status:         m.Status,
		OriginalValue:  m.OriginalValue,
		GeneratedValue: m.GeneratedValue,
		Confidence:     m.Confidence,
		ProcessingTime: time.Duration(m.ProcessingTimeMs) * time.Millisecond,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// BackfillItemModelFromDomain creates a persistence model from an item.
func BackfillItemModelFromDomain(i *backfill.BackfillItem) *BackfillItemModel {
	return &BackfillItemModel{
		ID:               i.ID,
		JobID:            i.JobID,
		EntityID:         i.EntityID,
		DataType:         i.DataType,
		Status:           i.Status,
		OriginalValue:    i.OriginalValue,
		GeneratedValue:   i.GeneratedValue,
		Confidence:       i.Confidence,
		ProcessingTimeMs: i.ProcessingTime.Milliseconds(),
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}
