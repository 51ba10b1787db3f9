package sync

import (
	"errors"

	"github.com/sssync/backend/internal/domain/sync"
)

var (
	// ErrRouteNilEvent is returned for a nil or malformed change event
	ErrRouteNilEvent = errors.New("sync: cannot route nil event")
	// ErrRouteNilConnections is returned when the connection list is missing.
	// An empty list is valid (zero targets); a nil list is a caller bug.
	ErrRouteNilConnections = errors.New("sync: connection list is required")
)

// SyncRouter decides which of a user's connections should receive a change.
// It is a pure function over the connection list: the caller emits the
// propagation jobs and audit-logs the decision, including zero-target cases.
type SyncRouter struct{}

// NewSyncRouter creates a sync router
func NewSyncRouter() *SyncRouter {
	return &SyncRouter{}
}

// Route returns the target set for a change event. The source connection and
// disabled connections are always excluded; the rest are filtered by their
// SyncRules with absent flags reading as true.
func (r *SyncRouter) Route(event sync.ChangeEvent, connections []sync.Connection) ([]sync.Connection, error) {
	if event == nil || !event.Kind().IsValid() {
		return nil, ErrRouteNilEvent
	}
	if connections == nil {
		return nil, ErrRouteNilConnections
	}

	targets := make([]sync.Connection, 0, len(connections))
	for _, conn := range connections {
		if conn.ID == event.SourceConnectionID() {
			continue
		}
		if !conn.Enabled {
			continue
		}
		if r.rulesAllow(conn.Rules, event) {
			targets = append(targets, conn)
		}
	}
	return targets, nil
}

// rulesAllow evaluates a connection's SyncRules against the event's change
// kind. PropagateChanges=false excludes unconditionally; otherwise the flag
// matching the change kind decides, defaulting to include when unset.
func (r *SyncRouter) rulesAllow(rules sync.SyncRules, event sync.ChangeEvent) bool {
	if !rules.ChangesAllowed() {
		return false
	}
	if event.IsInventory() {
		return rules.InventoryAllowed()
	}
	switch event.Kind() {
	case sync.ChangeKindCreated:
		return rules.CreatesAllowed()
	case sync.ChangeKindUpdated:
		return rules.UpdatesAllowed()
	case sync.ChangeKindDeleted:
		return rules.DeletesAllowed()
	default:
		return false
	}
}
