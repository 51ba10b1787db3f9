package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// ConflictField
// ---------------------------------------------------------------------------

// ConflictField identifies which field of an entity a conflict concerns
type ConflictField string

const (
	ConflictFieldPrice       ConflictField = "price"
	ConflictFieldTitle       ConflictField = "title"
	ConflictFieldDescription ConflictField = "description"
	ConflictFieldInventory   ConflictField = "inventory"
	ConflictFieldAll         ConflictField = "all"
)

// IsValid returns true if the conflict field is valid
func (f ConflictField) IsValid() bool {
	switch f {
	case ConflictFieldPrice, ConflictFieldTitle, ConflictFieldDescription,
		ConflictFieldInventory, ConflictFieldAll:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// RulePriority
// ---------------------------------------------------------------------------

// RulePriority selects which side wins a conflict under a resolution rule
type RulePriority string

const (
	// PrioritySSSyncWins keeps the canonical (source-of-truth) value
	PrioritySSSyncWins RulePriority = "sssync_wins"
	// PriorityPlatformWins accepts the platform-reported value
	PriorityPlatformWins RulePriority = "platform_wins"
	// PriorityMostRecent compares timestamps; strictly later wins, ties
	// go to canonical
	PriorityMostRecent RulePriority = "most_recent"
	// PriorityHighestValue takes the numerically larger value; canonical
	// wins on tie or when values are non-numeric
	PriorityHighestValue RulePriority = "highest_value"
	// PriorityUserReview defers to a human decision; canonical applies
	// until the review is recorded
	PriorityUserReview RulePriority = "user_review"
)

// IsValid returns true if the rule priority is valid
func (p RulePriority) IsValid() bool {
	switch p {
	case PrioritySSSyncWins, PriorityPlatformWins, PriorityMostRecent,
		PriorityHighestValue, PriorityUserReview:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// ConflictResolutionRule
// ---------------------------------------------------------------------------

// ConflictResolutionRule is one row of the ordered resolution rule table
type ConflictResolutionRule struct {
	// Priority selects the winning side
	Priority RulePriority
	// AppliesTo scopes the rule to a field; ConflictFieldAll matches any
	AppliesTo ConflictField
	// PlatformExceptions lists platform types exempt from this rule:
	// conflicts from these platforms always resolve to accept_platform
	PlatformExceptions []platform.Type
}

// ExemptsPlatform returns true if the platform type is in the exception list
func (r ConflictResolutionRule) ExemptsPlatform(platformType platform.Type) bool {
	for _, exempt := range r.PlatformExceptions {
		if exempt == platformType {
			return true
		}
	}
	return false
}

// RuleTable is an ordered list of resolution rules. The first rule whose
// AppliesTo matches the conflict's field applies.
type RuleTable []ConflictResolutionRule

// Match returns the first rule applying to the field, if any
func (t RuleTable) Match(field ConflictField) (ConflictResolutionRule, bool) {
	for _, rule := range t {
		if rule.AppliesTo == field || rule.AppliesTo == ConflictFieldAll {
			return rule, true
		}
	}
	return ConflictResolutionRule{}, false
}

// DefaultRuleTable returns the rule table used when a user has not
// configured any rules: canonical data is the source of truth everywhere
func DefaultRuleTable() RuleTable {
	return RuleTable{
		{Priority: PrioritySSSyncWins, AppliesTo: ConflictFieldAll},
	}
}

// RuleTableSource yields the resolution rule table for a user. Backed by
// persistence in production; StaticRuleSource serves fixed tables.
type RuleTableSource interface {
	// RulesForUser returns the user's rule table. An empty table means the
	// user has not configured rules and the default applies.
	RulesForUser(ctx context.Context, userID uuid.UUID) (RuleTable, error)
}

// StaticRuleSource adapts a fixed RuleTable as a RuleTableSource
type StaticRuleSource RuleTable

// RulesForUser returns the fixed table for every user
func (s StaticRuleSource) RulesForUser(_ context.Context, _ uuid.UUID) (RuleTable, error) {
	return RuleTable(s), nil
}

// ---------------------------------------------------------------------------
// RawConflict / Resolution
// ---------------------------------------------------------------------------

// RawConflict describes a detected disagreement between the canonical value
// and a platform-reported value for the same entity field
type RawConflict struct {
	// UserID is the owning user
	UserID uuid.UUID
	// EntityType names the conflicting entity kind (e.g. "ProductVariant")
	EntityType string
	// EntityID is the conflicting entity
	EntityID uuid.UUID
	// Field is the conflicting field
	Field ConflictField
	// CanonicalValue is our source-of-truth value
	CanonicalValue any
	// PlatformValue is the value the platform reported
	PlatformValue any
	// CanonicalUpdatedAt is when the canonical value was last mutated
	CanonicalUpdatedAt time.Time
	// PlatformReportedAt is when the platform reported its value
	PlatformReportedAt time.Time
	// PlatformType is the reporting platform
	PlatformType platform.Type
	// ConnectionID is the reporting connection
	ConnectionID uuid.UUID
}

// ResolutionAction is the outcome of conflict resolution
type ResolutionAction string

const (
	ResolutionKeepCanonical  ResolutionAction = "keep_canonical"
	ResolutionAcceptPlatform ResolutionAction = "accept_platform"
	ResolutionMerge          ResolutionAction = "merge"
	ResolutionUserReview     ResolutionAction = "user_review"
)

// IsTerminal returns false only for user_review, which stays open until a
// human decision is recorded
func (a ResolutionAction) IsTerminal() bool {
	return a != ResolutionUserReview
}

// Resolution is the decision produced for a RawConflict
type Resolution struct {
	// Action is the resolution outcome
	Action ResolutionAction `json:"action"`
	// AppliedValue is the value that wins (canonical until review for
	// user_review resolutions)
	AppliedValue any `json:"applied_value"`
	// Reason is a human-readable explanation of the decision
	Reason string `json:"reason"`
	// ShouldDelist signals that the incoming inventory quantity crosses
	// the platform's delist threshold. Orthogonal to who wins the value.
	ShouldDelist bool `json:"should_delist,omitempty"`
}

// NumericValue attempts to interpret a conflict value as a decimal number.
// Supports the value shapes that reach us from JSON payloads and domain code.
func NumericValue(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// ---------------------------------------------------------------------------
// ConflictEvent (append-only audit record)
// ---------------------------------------------------------------------------

// ConflictEvent is the persisted audit record for one resolved conflict.
// Records are append-only: they are never mutated after creation.
type ConflictEvent struct {
	// ID is the unique identifier of this record
	ID uuid.UUID
	// UserID is the owning user
	UserID uuid.UUID
	// EntityType and EntityID identify the conflicting entity
	EntityType string
	EntityID   uuid.UUID
	// Field is the conflicting field
	Field ConflictField
	// CanonicalValue is the canonical side, JSON-encoded
	CanonicalValue json.RawMessage
	// PlatformValue is the platform side, JSON-encoded
	PlatformValue json.RawMessage
	// PlatformType and ConnectionID identify the reporting platform
	PlatformType platform.Type
	ConnectionID uuid.UUID
	// CanonicalTimestamp is when the canonical value was last mutated
	CanonicalTimestamp time.Time
	// PlatformTimestamp is when the platform reported its value
	PlatformTimestamp time.Time
	// DetectedAt is when the conflict was detected
	DetectedAt time.Time
	// Resolution is the decision, JSON-encoded (action, applied value, reason)
	Resolution json.RawMessage
	// ResolvedAt is when the resolution was produced
	ResolvedAt time.Time
}

// NewConflictEvent builds the audit record for a resolved conflict
func NewConflictEvent(conflict RawConflict, resolution Resolution) (*ConflictEvent, error) {
	canonicalJSON, err := json.Marshal(conflict.CanonicalValue)
	if err != nil {
		return nil, err
	}
	platformJSON, err := json.Marshal(conflict.PlatformValue)
	if err != nil {
		return nil, err
	}
	resolutionJSON, err := json.Marshal(resolution)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &ConflictEvent{
		ID:                 uuid.New(),
		UserID:             conflict.UserID,
		EntityType:         conflict.EntityType,
		EntityID:           conflict.EntityID,
		Field:              conflict.Field,
		CanonicalValue:     canonicalJSON,
		PlatformValue:      platformJSON,
		PlatformType:       conflict.PlatformType,
		ConnectionID:       conflict.ConnectionID,
		CanonicalTimestamp: conflict.CanonicalUpdatedAt,
		PlatformTimestamp:  conflict.PlatformReportedAt,
		DetectedAt:         now,
		Resolution:         resolutionJSON,
		ResolvedAt:         now,
	}, nil
}

// ---------------------------------------------------------------------------
// ConflictEventRepository Interface
// ---------------------------------------------------------------------------

// ConflictEventRepository defines the append-only persistence interface for
// conflict audit records
type ConflictEventRepository interface {
	// Append persists a new conflict record. Records are never updated.
	Append(ctx context.Context, record *ConflictEvent) error

	// FindByUser returns conflict records for a user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ConflictEvent, error)

	// FindByEntity returns conflict records for one entity, newest first
	FindByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]ConflictEvent, error)

	// FindPendingReview returns records whose resolution action is
	// user_review, for the operator-facing review queue
	FindPendingReview(ctx context.Context, userID uuid.UUID, limit int) ([]ConflictEvent, error)
}
