package sync

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// ChangeKind
// ---------------------------------------------------------------------------

// ChangeKind represents the kind of change carried by a change event
type ChangeKind string

const (
	// ChangeKindCreated indicates a product was created
	ChangeKindCreated ChangeKind = "CREATED"
	// ChangeKindUpdated indicates a product or inventory level was updated
	ChangeKindUpdated ChangeKind = "UPDATED"
	// ChangeKindDeleted indicates a product was deleted
	ChangeKindDeleted ChangeKind = "DELETED"
)

// IsValid returns true if the change kind is valid
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeKindCreated, ChangeKindUpdated, ChangeKindDeleted:
		return true
	default:
		return false
	}
}

// Event type constants for the event bus
const (
	EventTypeProductChanged   = "sync.product.changed"
	EventTypeInventoryChanged = "sync.inventory.changed"
)

var (
	ErrEventInvalidKind     = errors.New("sync: invalid change kind")
	ErrEventInvalidEntityID = errors.New("sync: invalid entity ID")
	ErrEventInvalidSource   = errors.New("sync: invalid source connection")
)

// ---------------------------------------------------------------------------
// ChangeEvent
// ---------------------------------------------------------------------------

// ChangeEvent is the common interface over product and inventory change
// notifications. Events are immutable once published and are not persisted;
// persistence of their effects happens via conflict and dispatch records.
type ChangeEvent interface {
	shared.DomainEvent
	// Kind returns the change kind
	Kind() ChangeKind
	// SourceConnectionID returns the connection the change originated from
	SourceConnectionID() uuid.UUID
	// SourcePlatform returns the platform type of the source connection
	SourcePlatform() platform.Type
	// CorrelationID returns the webhook correlation ID, if any
	CorrelationID() string
	// IsInventory returns true for inventory-level changes
	IsInventory() bool
}

// ---------------------------------------------------------------------------
// ProductChangeEvent
// ---------------------------------------------------------------------------

// ProductChangeEvent notifies subscribers that a product was created,
// updated or deleted on some connection (or canonically)
type ProductChangeEvent struct {
	shared.BaseDomainEvent
	ChangeKind      ChangeKind    `json:"change_kind"`
	SourceConnID    uuid.UUID     `json:"source_connection_id"`
	SourcePlatformT platform.Type `json:"source_platform"`
	CorrelationIDV  string        `json:"correlation_id,omitempty"`
}

// NewProductChangeEvent creates a product change event
func NewProductChangeEvent(
	userID uuid.UUID,
	productID uuid.UUID,
	kind ChangeKind,
	sourceConnID uuid.UUID,
	sourcePlatform platform.Type,
	correlationID string,
) (*ProductChangeEvent, error) {
	if !kind.IsValid() {
		return nil, ErrEventInvalidKind
	}
	if productID == uuid.Nil {
		return nil, ErrEventInvalidEntityID
	}
	if sourceConnID == uuid.Nil {
		return nil, ErrEventInvalidSource
	}
	return &ProductChangeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductChanged, "Product", productID, userID),
		ChangeKind:      kind,
		SourceConnID:    sourceConnID,
		SourcePlatformT: sourcePlatform,
		CorrelationIDV:  correlationID,
	}, nil
}

// Kind returns the change kind
func (e *ProductChangeEvent) Kind() ChangeKind { return e.ChangeKind }

// SourceConnectionID returns the originating connection ID
func (e *ProductChangeEvent) SourceConnectionID() uuid.UUID { return e.SourceConnID }

// SourcePlatform returns the platform type of the source connection
func (e *ProductChangeEvent) SourcePlatform() platform.Type { return e.SourcePlatformT }

// CorrelationID returns the webhook correlation ID, if any
func (e *ProductChangeEvent) CorrelationID() string { return e.CorrelationIDV }

// IsInventory returns false for product-level changes
func (e *ProductChangeEvent) IsInventory() bool { return false }

// ---------------------------------------------------------------------------
// InventoryChangeEvent
// ---------------------------------------------------------------------------

// InventoryChangeEvent notifies subscribers that a variant's stock level
// changed on some connection (or canonically)
type InventoryChangeEvent struct {
	shared.BaseDomainEvent
	SourceConnID    uuid.UUID     `json:"source_connection_id"`
	SourcePlatformT platform.Type `json:"source_platform"`
	CorrelationIDV  string        `json:"correlation_id,omitempty"`
	LocationID      *uuid.UUID    `json:"location_id,omitempty"`
	NewQuantity     int64         `json:"new_quantity"`
}

// NewInventoryChangeEvent creates an inventory change event. Inventory
// changes are always UPDATED-kind.
func NewInventoryChangeEvent(
	userID uuid.UUID,
	variantID uuid.UUID,
	sourceConnID uuid.UUID,
	sourcePlatform platform.Type,
	locationID *uuid.UUID,
	newQuantity int64,
	correlationID string,
) (*InventoryChangeEvent, error) {
	if variantID == uuid.Nil {
		return nil, ErrEventInvalidEntityID
	}
	if sourceConnID == uuid.Nil {
		return nil, ErrEventInvalidSource
	}
	return &InventoryChangeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryChanged, "InventoryLevel", variantID, userID),
		SourceConnID:    sourceConnID,
		SourcePlatformT: sourcePlatform,
		CorrelationIDV:  correlationID,
		LocationID:      locationID,
		NewQuantity:     newQuantity,
	}, nil
}

// Kind returns ChangeKindUpdated; inventory events carry no other kind
func (e *InventoryChangeEvent) Kind() ChangeKind { return ChangeKindUpdated }

// SourceConnectionID returns the originating connection ID
func (e *InventoryChangeEvent) SourceConnectionID() uuid.UUID { return e.SourceConnID }

// SourcePlatform returns the platform type of the source connection
func (e *InventoryChangeEvent) SourcePlatform() platform.Type { return e.SourcePlatformT }

// CorrelationID returns the webhook correlation ID, if any
func (e *InventoryChangeEvent) CorrelationID() string { return e.CorrelationIDV }

// IsInventory returns true for inventory-level changes
func (e *InventoryChangeEvent) IsInventory() bool { return true }

// Interface assertions
var (
	_ ChangeEvent = (*ProductChangeEvent)(nil)
	_ ChangeEvent = (*InventoryChangeEvent)(nil)
)
