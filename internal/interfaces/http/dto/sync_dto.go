package dto

// WebhookChangeRequest is the inbound webhook notification shape. Platform
// webhook receivers normalize their platform payloads to this before
// posting into the core.
type WebhookChangeRequest struct {
	UserID             string `json:"user_id" binding:"required,uuid"`
	SourceConnectionID string `json:"source_connection_id" binding:"required,uuid"`
	SourcePlatform     string `json:"source_platform" binding:"required,platformtype"`
	EntityID           string `json:"entity_id" binding:"required,uuid"`
	// ChangeType is "product" or "inventory"
	ChangeType string `json:"change_type" binding:"required,oneof=product inventory"`
	// ChangeKind is CREATED, UPDATED or DELETED; ignored for inventory
	ChangeKind string `json:"change_kind" binding:"omitempty,oneof=CREATED UPDATED DELETED"`
	// NewQuantity is required for inventory changes
	NewQuantity *int64 `json:"new_quantity,omitempty"`
	LocationID  string `json:"location_id,omitempty" binding:"omitempty,uuid"`
	// CorrelationID dedups retried webhook deliveries
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WebhookAcceptedResponse acknowledges an ingested webhook
type WebhookAcceptedResponse struct {
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

// SyncRulesRequest carries optional per-connection rule overrides.
// Absent flags leave the current value untouched.
type SyncRulesRequest struct {
	PropagateChanges    *bool `json:"propagate_changes,omitempty"`
	PropagateCreates    *bool `json:"propagate_creates,omitempty"`
	PropagateUpdates    *bool `json:"propagate_updates,omitempty"`
	PropagateDeletes    *bool `json:"propagate_deletes,omitempty"`
	PropagateInventory  *bool `json:"propagate_inventory,omitempty"`
	RealtimeSyncEnabled *bool `json:"realtime_sync_enabled,omitempty"`
}

// SyncStatusResponse is the operator-facing sync status surface
type SyncStatusResponse struct {
	ConnectionID             string   `json:"connection_id"`
	PlatformType             string   `json:"platform_type"`
	DisplayName              string   `json:"display_name"`
	WebhooksRegistered       bool     `json:"webhooks_registered"`
	WebhookCount             int      `json:"webhook_count"`
	CrossPlatformSyncEnabled bool     `json:"cross_platform_sync_enabled"`
	Errors                   []string `json:"errors"`
}

// ConflictEventResponse is one resolved conflict audit record
type ConflictEventResponse struct {
	ID             string `json:"id"`
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	Field          string `json:"field"`
	CanonicalValue any    `json:"canonical_value"`
	PlatformValue  any    `json:"platform_value"`
	PlatformType   string `json:"platform_type"`
	Resolution     any    `json:"resolution"`
	DetectedAt     string `json:"detected_at"`
	ResolvedAt     string `json:"resolved_at"`
}
