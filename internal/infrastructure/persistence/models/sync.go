package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// ConnectionModel
// ---------------------------------------------------------------------------

// ConnectionModel is the persistence model for the Connection entity.
type ConnectionModel struct {
	ID                 uuid.UUID     `gorm:"type:uuid;primary_key"`
	UserID             uuid.UUID     `gorm:"type:uuid;not null;index:idx_connections_user"`
	PlatformType       platform.Type `gorm:"type:varchar(20);not null;index:idx_connections_platform"`
	DisplayName        string        `gorm:"type:varchar(255)"`
	Enabled            bool          `gorm:"not null;default:true"`
	RulesJSON          string        `gorm:"type:jsonb;column:sync_rules"`
	WebhooksRegistered bool          `gorm:"not null;default:false"`
	WebhookCount       int           `gorm:"not null;default:0"`
	LastErrorsJSON     string        `gorm:"type:jsonb;column:last_errors"`
	CreatedAt          time.Time     `gorm:"not null"`
	UpdatedAt          time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConnectionModel) TableName() string {
	return "platform_connections"
}

// ToDomain converts the persistence model to a domain Connection entity.
func (m *ConnectionModel) ToDomain() *sync.Connection {
	conn := &sync.Connection{
		ID:                 m.ID,
		UserID:             m.UserID,
		PlatformType:       m.PlatformType,
		DisplayName:        m.DisplayName,
		Enabled:            m.Enabled,
		WebhooksRegistered: m.WebhooksRegistered,
		WebhookCount:       m.WebhookCount,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.RulesJSON != "" {
		var rules sync.SyncRules
		if err := json.Unmarshal([]byte(m.RulesJSON), &rules); err == nil {
			conn.Rules = rules
		}
	}
	if m.LastErrorsJSON != "" {
		var lastErrors []string
		if err := json.Unmarshal([]byte(m.LastErrorsJSON), &lastErrors); err == nil {
			conn.LastErrors = lastErrors
		}
	}

	return conn
}

// FromDomain populates the persistence model from a domain Connection entity.
func (m *ConnectionModel) FromDomain(c *sync.Connection) {
	m.ID = c.ID
	m.UserID = c.UserID
	m.PlatformType = c.PlatformType
	m.DisplayName = c.DisplayName
	m.Enabled = c.Enabled
	m.WebhooksRegistered = c.WebhooksRegistered
	m.WebhookCount = c.WebhookCount
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt

	if jsonBytes, err := json.Marshal(c.Rules); err == nil {
		m.RulesJSON = string(jsonBytes)
	}
	if len(c.LastErrors) > 0 {
		if jsonBytes, err := json.Marshal(c.LastErrors); err == nil {
			m.LastErrorsJSON = string(jsonBytes)
		}
	} else {
		m.LastErrorsJSON = "[]"
	}
}

// ConnectionModelFromDomain creates a new persistence model from a Connection.
func ConnectionModelFromDomain(c *sync.Connection) *ConnectionModel {
	m := &ConnectionModel{}
	m.FromDomain(c)
	return m
}

// ---------------------------------------------------------------------------
// ProductMappingModel
// ---------------------------------------------------------------------------

// ProductMappingModel is the persistence model for the ProductMapping entity.
type ProductMappingModel struct {
	ID                uuid.UUID     `gorm:"type:uuid;primary_key"`
	UserID            uuid.UUID     `gorm:"type:uuid;not null;index:idx_product_mappings_user"`
	ConnectionID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_product_mappings_connection"`
	LocalProductID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_product_mappings_local_product"`
	PlatformProductID string        `gorm:"type:varchar(100);not null"`
	PlatformType      platform.Type `gorm:"type:varchar(20);not null"`
	Enabled           bool          `gorm:"not null;default:true"`
	VariantsJSON      string        `gorm:"type:jsonb;column:variants"`
	LastSyncedAt      *time.Time    `gorm:"index"`
	CreatedAt         time.Time     `gorm:"not null"`
	UpdatedAt         time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductMappingModel) TableName() string {
	return "product_mappings"
}

// ToDomain converts the persistence model to a domain ProductMapping entity.
func (m *ProductMappingModel) ToDomain() *sync.ProductMapping {
	mapping := &sync.ProductMapping{
		ID:                m.ID,
		UserID:            m.UserID,
		ConnectionID:      m.ConnectionID,
		LocalProductID:    m.LocalProductID,
		PlatformProductID: m.PlatformProductID,
		PlatformType:      m.PlatformType,
		Enabled:           m.Enabled,
		Variants:          make([]sync.MappedVariant, 0),
		LastSyncedAt:      m.LastSyncedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	if m.VariantsJSON != "" {
		var variants []sync.MappedVariant
		if err := json.Unmarshal([]byte(m.VariantsJSON), &variants); err == nil {
			mapping.Variants = variants
		}
	}

	return mapping
}

// FromDomain populates the persistence model from a domain ProductMapping.
func (m *ProductMappingModel) FromDomain(pm *sync.ProductMapping) {
	m.ID = pm.ID
	m.UserID = pm.UserID
	m.ConnectionID = pm.ConnectionID
	m.LocalProductID = pm.LocalProductID
	m.PlatformProductID = pm.PlatformProductID
	m.PlatformType = pm.PlatformType
	m.Enabled = pm.Enabled
	m.LastSyncedAt = pm.LastSyncedAt
	m.CreatedAt = pm.CreatedAt
	m.UpdatedAt = pm.UpdatedAt

	if len(pm.Variants) > 0 {
		if jsonBytes, err := json.Marshal(pm.Variants); err == nil {
			m.VariantsJSON = string(jsonBytes)
		}
	} else {
		m.VariantsJSON = "[]"
	}
}

// ProductMappingModelFromDomain creates a new persistence model from a mapping.
func ProductMappingModelFromDomain(pm *sync.ProductMapping) *ProductMappingModel {
	m := &ProductMappingModel{}
	m.FromDomain(pm)
	return m
}

// ---------------------------------------------------------------------------
// ConflictEventModel
// ---------------------------------------------------------------------------

// ConflictEventModel is the persistence model for the append-only conflict
// audit record.
type ConflictEventModel struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index:idx_conflict_events_user"`
	EntityType         string             `gorm:"type:varchar(50);not null"`
	EntityID           uuid.UUID          `gorm:"type:uuid;not null;index:idx_conflict_events_entity"`
	Field              sync.ConflictField `gorm:"type:varchar(20);not null"`
	CanonicalValue     string             `gorm:"type:jsonb"`
	PlatformValue      string             `gorm:"type:jsonb"`
	PlatformType       platform.Type      `gorm:"type:varchar(20);not null"`
	ConnectionID       uuid.UUID          `gorm:"type:uuid;not null"`
	CanonicalTimestamp time.Time          `gorm:"not null"`
	PlatformTimestamp  time.Time          `gorm:"not null"`
	DetectedAt         time.Time          `gorm:"not null;index"`
	Resolution         string             `gorm:"type:jsonb"`
	ResolutionAction   string             `gorm:"type:varchar(20);not null;index:idx_conflict_events_action"`
	ResolvedAt         time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConflictEventModel) TableName() string {
	return "conflict_events"
}

// ToDomain converts the persistence model to a domain ConflictEvent.
func (m *ConflictEventModel) ToDomain() *sync.ConflictEvent {
	return &sync.ConflictEvent{
		ID:                 m.ID,
		UserID:             m.UserID,
		EntityType:         m.EntityType,
		EntityID:           m.EntityID,
		Field:              m.Field,
		CanonicalValue:     json.RawMessage(m.CanonicalValue),
		PlatformValue:      json.RawMessage(m.PlatformValue),
		PlatformType:       m.PlatformType,
		ConnectionID:       m.ConnectionID,
		CanonicalTimestamp: m.CanonicalTimestamp,
		PlatformTimestamp:  m.PlatformTimestamp,
		DetectedAt:         m.DetectedAt,
		Resolution:         json.RawMessage(m.Resolution),
		ResolvedAt:         m.ResolvedAt,
	}
}

// ConflictEventModelFromDomain creates a persistence model from a record.
// The resolution action is denormalized into its own column so the pending
// review queue can filter without unpacking JSON.
func ConflictEventModelFromDomain(e *sync.ConflictEvent) *ConflictEventModel {
	m := &ConflictEventModel{
		ID:                 e.ID,
		UserID:             e.UserID,
		EntityType:         e.EntityType,
		EntityID:           e.EntityID,
		Field:              e.Field,
		CanonicalValue:     string(e.CanonicalValue),
		PlatformValue:      string(e.PlatformValue),
		PlatformType:       e.PlatformType,
		ConnectionID:       e.ConnectionID,
		CanonicalTimestamp: e.CanonicalTimestamp,
		PlatformTimestamp:  e.PlatformTimestamp,
		DetectedAt:         e.DetectedAt,
		Resolution:         string(e.Resolution),
		ResolvedAt:         e.ResolvedAt,
	}

	var resolution sync.Resolution
	if err := json.Unmarshal(e.Resolution, &resolution); err == nil {
		m.ResolutionAction = string(resolution.Action)
	}

	return m
}

// ---------------------------------------------------------------------------
// ConflictRuleModel
// ---------------------------------------------------------------------------

// ConflictRuleModel is one row of a user's ordered resolution rule table.
type ConflictRuleModel struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index:idx_conflict_rules_user"`
	Position           int                `gorm:"not null"`
	Priority           sync.RulePriority  `gorm:"type:varchar(20);not null"`
	AppliesTo          sync.ConflictField `gorm:"type:varchar(20);not null"`
	PlatformExceptions string             `gorm:"type:jsonb"`
	CreatedAt          time.Time          `gorm:"not null"`
	UpdatedAt          time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConflictRuleModel) TableName() string {
	return "conflict_resolution_rules"
}

// ToDomain converts the persistence model to a domain rule.
func (m *ConflictRuleModel) ToDomain() sync.ConflictResolutionRule {
	rule := sync.ConflictResolutionRule{
		Priority:  m.Priority,
		AppliesTo: m.AppliesTo,
	}
	if m.PlatformExceptions != "" {
		var exceptions []platform.Type
		if err := json.Unmarshal([]byte(m.PlatformExceptions), &exceptions); err == nil {
			rule.PlatformExceptions = exceptions
		}
	}
	return rule
}

// ---------------------------------------------------------------------------
// DispatchJobModel
// ---------------------------------------------------------------------------

// DispatchJobModel is the persistence model backing the durable dispatch
// queue.
type DispatchJobModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_dispatch_jobs_user"`
	Kind        string              `gorm:"type:varchar(50);not null"`
	Priority    int                 `gorm:"not null;default:3"`
	Payload     []byte              `gorm:"type:jsonb"`
	Status      sync.DispatchStatus `gorm:"type:varchar(20);not null;index:idx_dispatch_jobs_status"`
	Attempts    int                 `gorm:"not null;default:0"`
	MaxAttempts int                 `gorm:"not null;default:5"`
	LastError   string              `gorm:"type:text"`
	NextRetryAt *time.Time          `gorm:"index:idx_dispatch_jobs_retry"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DispatchJobModel) TableName() string {
	return "dispatch_jobs"
}

// ToDomain converts the persistence model to a domain DispatchJob.
func (m *DispatchJobModel) ToDomain() *sync.DispatchJob {
	return &sync.DispatchJob{
		ID:          m.ID,
		UserID:      m.UserID,
		Kind:        m.Kind,
		Priority:    m.Priority,
		Payload:     m.Payload,
		Status:      m.Status,
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// DispatchJobModelFromDomain creates a persistence model from a DispatchJob.
func DispatchJobModelFromDomain(j *sync.DispatchJob) *DispatchJobModel {
	return &DispatchJobModel{
		ID:          j.ID,
		UserID:      j.UserID,
		Kind:        j.Kind,
		Priority:    j.Priority,
		Payload:     j.Payload,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		NextRetryAt: j.NextRetryAt,
		ProcessedAt: j.ProcessedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// ActivityLogModel
// ---------------------------------------------------------------------------

// ActivityLogModel is one audit/activity line for a user.
type ActivityLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_activity_logs_user"`
	Action    string    `gorm:"type:varchar(100);not null"`
	Detail    string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
