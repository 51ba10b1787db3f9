package sync

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
)

// Dispatch kinds used as DispatchEnvelope.Kind
const (
	DispatchKindPropagation = "propagation"
	DispatchKindBackfill    = "backfill"
)

// PropagationPayload is the job body for pushing one change to one target
// connection. It is what queue workers hand to the platform adapter.
type PropagationPayload struct {
	// TargetConnectionID is the connection receiving the change
	TargetConnectionID uuid.UUID `json:"target_connection_id"`
	// TargetPlatform is the target connection's platform type
	TargetPlatform platform.Type `json:"target_platform"`
	// SourceConnectionID is the connection the change originated from
	SourceConnectionID uuid.UUID `json:"source_connection_id"`
	// EntityType and EntityID identify what changed
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	// ChangeKind is the change kind being propagated
	ChangeKind ChangeKind `json:"change_kind"`
	// Inventory is true for inventory-level propagation
	Inventory bool `json:"inventory"`
	// NewQuantity carries the stock level for inventory propagation
	NewQuantity int64 `json:"new_quantity,omitempty"`
	// LocationID scopes inventory to a location, if set
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	// ShouldDelist signals the target should delist the item
	ShouldDelist bool `json:"should_delist,omitempty"`
	// AppliedValue is the winning value from conflict resolution, if one ran
	AppliedValue json.RawMessage `json:"applied_value,omitempty"`
	// ResolutionAction records how the conflict resolved, if one ran
	ResolutionAction ResolutionAction `json:"resolution_action,omitempty"`
	// CorrelationID threads the originating webhook delivery through
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Marshal encodes the payload for a dispatch envelope
func (p PropagationPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPropagationPayload decodes a dispatch envelope payload
func UnmarshalPropagationPayload(data []byte) (PropagationPayload, error) {
	var p PropagationPayload
	err := json.Unmarshal(data, &p)
	return p, err
}
