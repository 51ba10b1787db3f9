package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Connection Errors
// ---------------------------------------------------------------------------

var (
	ErrConnectionNotFound       = errors.New("sync: connection not found")
	ErrConnectionInvalidUserID  = errors.New("sync: invalid user ID")
	ErrConnectionInvalidType    = errors.New("sync: invalid platform type")
	ErrConnectionDisabled       = errors.New("sync: connection is disabled")
	ErrConnectionAlreadyEnabled = errors.New("sync: sync already enabled for connection")
)

// ---------------------------------------------------------------------------
// SyncRules Value Object
// ---------------------------------------------------------------------------

// SyncRules holds the per-connection propagation flags. Every flag is
// nullable: an absent flag must not silently stop sync, so nil reads as
// true (fail-open for propagation).
type SyncRules struct {
	PropagateChanges    *bool `json:"propagate_changes,omitempty"`
	PropagateCreates    *bool `json:"propagate_creates,omitempty"`
	PropagateUpdates    *bool `json:"propagate_updates,omitempty"`
	PropagateDeletes    *bool `json:"propagate_deletes,omitempty"`
	PropagateInventory  *bool `json:"propagate_inventory,omitempty"`
	RealtimeSyncEnabled *bool `json:"realtime_sync_enabled,omitempty"`
}

// flagOrDefault reads a nullable flag, treating nil as true
func flagOrDefault(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// ChangesAllowed reports whether any propagation is allowed at all.
// When false, every change kind is excluded unconditionally.
func (r SyncRules) ChangesAllowed() bool {
	return flagOrDefault(r.PropagateChanges)
}

// CreatesAllowed reports whether product creations propagate
func (r SyncRules) CreatesAllowed() bool {
	return flagOrDefault(r.PropagateCreates)
}

// UpdatesAllowed reports whether product updates propagate
func (r SyncRules) UpdatesAllowed() bool {
	return flagOrDefault(r.PropagateUpdates)
}

// DeletesAllowed reports whether product deletions propagate
func (r SyncRules) DeletesAllowed() bool {
	return flagOrDefault(r.PropagateDeletes)
}

// InventoryAllowed reports whether inventory changes propagate
func (r SyncRules) InventoryAllowed() bool {
	return flagOrDefault(r.PropagateInventory)
}

// RealtimeEnabled reports whether webhook-driven realtime sync is on
func (r SyncRules) RealtimeEnabled() bool {
	return flagOrDefault(r.RealtimeSyncEnabled)
}

// Merge overlays explicitly-set flags from overrides onto the receiver
// and returns the result. Unset override flags leave the current value.
func (r SyncRules) Merge(overrides SyncRules) SyncRules {
	merged := r
	if overrides.PropagateChanges != nil {
		merged.PropagateChanges = overrides.PropagateChanges
	}
	if overrides.PropagateCreates != nil {
		merged.PropagateCreates = overrides.PropagateCreates
	}
	if overrides.PropagateUpdates != nil {
		merged.PropagateUpdates = overrides.PropagateUpdates
	}
	if overrides.PropagateDeletes != nil {
		merged.PropagateDeletes = overrides.PropagateDeletes
	}
	if overrides.PropagateInventory != nil {
		merged.PropagateInventory = overrides.PropagateInventory
	}
	if overrides.RealtimeSyncEnabled != nil {
		merged.RealtimeSyncEnabled = overrides.RealtimeSyncEnabled
	}
	return merged
}

// ---------------------------------------------------------------------------
// Connection Entity
// ---------------------------------------------------------------------------

// Connection represents one external platform account owned by a user.
// Each connection can push state changes in via webhook and receives
// changes originating elsewhere, subject to its SyncRules.
type Connection struct {
	// ID is the unique identifier of this connection
	ID uuid.UUID
	// UserID is the owning user
	UserID uuid.UUID
	// PlatformType identifies which platform this connection points at
	PlatformType platform.Type
	// DisplayName is the operator-facing name (e.g. shop domain)
	DisplayName string
	// Enabled indicates whether the connection participates in sync at all
	Enabled bool
	// Rules are the per-connection propagation flags
	Rules SyncRules
	// WebhooksRegistered indicates inbound webhooks are set up on the platform
	WebhooksRegistered bool
	// WebhookCount is the number of webhook topics registered
	WebhookCount int
	// LastErrors holds recent sync errors for the status surface
	LastErrors []string
	// CreatedAt is when this connection was created
	CreatedAt time.Time
	// UpdatedAt is when this connection was last updated
	UpdatedAt time.Time
}

// NewConnection creates a new enabled connection with default (all-true) rules
func NewConnection(userID uuid.UUID, platformType platform.Type, displayName string) (*Connection, error) {
	if userID == uuid.Nil {
		return nil, ErrConnectionInvalidUserID
	}
	if !platformType.IsValid() {
		return nil, ErrConnectionInvalidType
	}

	now := time.Now()
	return &Connection{
		ID:           uuid.New(),
		UserID:       userID,
		PlatformType: platformType,
		DisplayName:  displayName,
		Enabled:      true,
		Rules:        SyncRules{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// EnableSync turns cross-platform sync on, applying any rule overrides
func (c *Connection) EnableSync(overrides SyncRules) {
	c.Enabled = true
	c.Rules = c.Rules.Merge(overrides)
	c.UpdatedAt = time.Now()
}

// DisableSync turns cross-platform sync off for this connection
func (c *Connection) DisableSync() {
	c.Enabled = false
	c.UpdatedAt = time.Now()
}

// RecordError appends a sync error to the connection's recent error list,
// keeping only the most recent entries
func (c *Connection) RecordError(msg string) {
	const maxErrors = 10
	c.LastErrors = append(c.LastErrors, msg)
	if len(c.LastErrors) > maxErrors {
		c.LastErrors = c.LastErrors[len(c.LastErrors)-maxErrors:]
	}
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// ConnectionRepository Interface
// ---------------------------------------------------------------------------

// ConnectionRepository defines the persistence interface for connections
type ConnectionRepository interface {
	// FindByID finds a connection by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)

	// FindByUser finds all connections for a user
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Connection, error)

	// Save creates or updates a connection
	Save(ctx context.Context, conn *Connection) error

	// Delete deletes a connection
	Delete(ctx context.Context, id uuid.UUID) error
}
