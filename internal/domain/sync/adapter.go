package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
)

var (
	ErrAdapterNotRegistered = errors.New("sync: no adapter registered for platform")
)

// PlatformAdapter is the port interface for external platform API clients.
// Concrete implementations (Shopify, Square, ...) live outside this core and
// are injected at wiring time. The decision layer never calls these
// directly; queue workers do.
type PlatformAdapter interface {
	// PlatformType returns the platform this adapter talks to
	PlatformType() platform.Type

	// TestConnection verifies credentials and API reachability
	TestConnection(ctx context.Context, conn *Connection) error

	// PushProductChange writes a product create/update/delete to the platform
	PushProductChange(ctx context.Context, conn *Connection, payload PropagationPayload) error

	// PushInventoryLevel writes a stock level to the platform, optionally
	// delisting the item
	PushInventoryLevel(ctx context.Context, conn *Connection, payload PropagationPayload) error
}

// AdapterRegistry resolves the adapter for a platform type
type AdapterRegistry interface {
	// AdapterFor returns the adapter for the platform type
	AdapterFor(platformType platform.Type) (PlatformAdapter, error)
}

// StaticAdapterRegistry is a fixed adapter lookup table built at wiring
// time. Immutable after construction and safe for concurrent use.
type StaticAdapterRegistry struct {
	adapters map[platform.Type]PlatformAdapter
}

// NewStaticAdapterRegistry creates a registry from the given adapters
func NewStaticAdapterRegistry(adapters ...PlatformAdapter) *StaticAdapterRegistry {
	table := make(map[platform.Type]PlatformAdapter, len(adapters))
	for _, adapter := range adapters {
		table[adapter.PlatformType()] = adapter
	}
	return &StaticAdapterRegistry{adapters: table}
}

// AdapterFor returns the adapter for the platform type
func (r *StaticAdapterRegistry) AdapterFor(platformType platform.Type) (PlatformAdapter, error) {
	adapter, ok := r.adapters[platformType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotRegistered, platformType)
	}
	return adapter, nil
}

var _ AdapterRegistry = (*StaticAdapterRegistry)(nil)

// ActivityRecorder is the write-only audit/activity sink consumed as a
// collaborator. Failures are the recorder's concern, never the caller's.
type ActivityRecorder interface {
	// RecordActivity appends one activity line for the user
	RecordActivity(ctx context.Context, userID uuid.UUID, action string, detail map[string]any)
}
