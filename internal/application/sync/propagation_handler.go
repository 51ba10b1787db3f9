package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sssync/backend/internal/domain/shared"
	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// Dispatch priorities for propagation work. Inventory changes move stock
// that may already be sold elsewhere, so they run ahead of product edits.
const (
	priorityInventoryPropagation = 1
	priorityProductPropagation   = 2
)

// PropagationHandler subscribes to change events and fans each one out to
// the target connections chosen by the router. One dispatch envelope is
// emitted per target; delivery and retries are the dispatcher's concern.
type PropagationHandler struct {
	connections sync.ConnectionRepository
	mappings    sync.ProductMappingRepository
	router      *SyncRouter
	resolver    *ConflictResolver
	dispatcher  sync.Dispatcher
	recorder    sync.ActivityRecorder
	logger      *zap.Logger
}

// NewPropagationHandler creates a propagation handler
func NewPropagationHandler(
	connections sync.ConnectionRepository,
	mappings sync.ProductMappingRepository,
	router *SyncRouter,
	resolver *ConflictResolver,
	dispatcher sync.Dispatcher,
	recorder sync.ActivityRecorder,
	logger *zap.Logger,
) *PropagationHandler {
	return &PropagationHandler{
		connections: connections,
		mappings:    mappings,
		router:      router,
		resolver:    resolver,
		dispatcher:  dispatcher,
		recorder:    recorder,
		logger:      logger,
	}
}

// EventTypes returns the change event types this handler subscribes to
func (h *PropagationHandler) EventTypes() []string {
	return []string{sync.EventTypeProductChanged, sync.EventTypeInventoryChanged}
}

// Handle routes one change event and enqueues a propagation job per target.
// A failing target is skipped and logged; it never blocks the other targets.
func (h *PropagationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	change, ok := event.(sync.ChangeEvent)
	if !ok {
		return nil
	}

	connections, err := h.connections.FindByUser(ctx, change.UserID())
	if err != nil {
		return fmt.Errorf("load connections for user %s: %w", change.UserID(), err)
	}

	targets, err := h.router.Route(change, connections)
	if err != nil {
		return fmt.Errorf("route change %s: %w", change.EventID(), err)
	}
	if len(targets) == 0 {
		h.logger.Debug("change routed to zero targets",
			zap.String("event_id", change.EventID().String()),
			zap.String("entity_id", change.AggregateID().String()),
			zap.String("source_connection_id", change.SourceConnectionID().String()),
		)
		return nil
	}

	dispatched := 0
	for _, target := range targets {
		payload, skip := h.buildPayload(ctx, change, target)
		if skip {
			continue
		}

		body, err := payload.Marshal()
		if err != nil {
			h.logger.Error("failed to encode propagation payload",
				zap.String("target_connection_id", target.ID.String()),
				zap.Error(err),
			)
			continue
		}

		priority := priorityProductPropagation
		if change.IsInventory() {
			priority = priorityInventoryPropagation
		}

		env := sync.DispatchEnvelope{
			Kind:     sync.DispatchKindPropagation,
			UserID:   change.UserID(),
			Priority: priority,
			Payload:  body,
		}
		if err := h.dispatcher.Enqueue(ctx, env); err != nil {
			h.logger.Error("failed to enqueue propagation job",
				zap.String("target_connection_id", target.ID.String()),
				zap.String("entity_id", change.AggregateID().String()),
				zap.Error(err),
			)
			continue
		}
		dispatched++
	}

	h.recorder.RecordActivity(ctx, change.UserID(), "sync.propagation.dispatched", map[string]any{
		"entity_id":      change.AggregateID().String(),
		"entity_type":    change.AggregateType(),
		"change_kind":    string(change.Kind()),
		"inventory":      change.IsInventory(),
		"targets":        dispatched,
		"correlation_id": change.CorrelationID(),
	})
	return nil
}

// buildPayload assembles the propagation payload for one target. Targets
// without an existing mapping are skipped for everything except creates,
// since there is no listing to update or delete yet.
func (h *PropagationHandler) buildPayload(ctx context.Context, change sync.ChangeEvent, target sync.Connection) (sync.PropagationPayload, bool) {
	payload := sync.PropagationPayload{
		TargetConnectionID: target.ID,
		TargetPlatform:     target.PlatformType,
		SourceConnectionID: change.SourceConnectionID(),
		EntityType:         change.AggregateType(),
		EntityID:           change.AggregateID(),
		ChangeKind:         change.Kind(),
		Inventory:          change.IsInventory(),
		CorrelationID:      change.CorrelationID(),
	}

	holdsEntity := change.Kind() != sync.ChangeKindCreated
	if holdsEntity {
		exists, err := h.mappings.ExistsForEntity(ctx, target.ID, change.AggregateID())
		if err != nil {
			h.logger.Error("failed to check product mapping",
				zap.String("target_connection_id", target.ID.String()),
				zap.String("entity_id", change.AggregateID().String()),
				zap.Error(err),
			)
			return payload, true
		}
		if !exists {
			h.logger.Debug("target holds no mapping for entity, skipping",
				zap.String("target_connection_id", target.ID.String()),
				zap.String("entity_id", change.AggregateID().String()),
			)
			return payload, true
		}
	}

	if inventory, ok := change.(*sync.InventoryChangeEvent); ok {
		payload.NewQuantity = inventory.NewQuantity
		payload.LocationID = inventory.LocationID

		// The target holds this entity, so the new quantity runs through
		// conflict resolution. That yields the delist decision for the
		// target's platform and the audit record for the push.
		resolution := h.resolver.Resolve(ctx, sync.RawConflict{
			UserID:             change.UserID(),
			EntityType:         change.AggregateType(),
			EntityID:           change.AggregateID(),
			Field:              sync.ConflictFieldInventory,
			CanonicalValue:     inventory.NewQuantity,
			PlatformValue:      inventory.NewQuantity,
			CanonicalUpdatedAt: change.OccurredAt(),
			PlatformReportedAt: change.OccurredAt(),
			PlatformType:       target.PlatformType,
			ConnectionID:       target.ID,
		})
		payload.ShouldDelist = resolution.ShouldDelist
		payload.ResolutionAction = resolution.Action
		if applied, err := json.Marshal(resolution.AppliedValue); err == nil {
			payload.AppliedValue = applied
		}
	}

	return payload, false
}

var _ shared.EventHandler = (*PropagationHandler)(nil)
