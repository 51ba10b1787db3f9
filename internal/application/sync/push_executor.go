package sync

import (
	"context"
	"fmt"

	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// PushExecutor runs propagation envelopes pulled off the dispatch queues:
// it resolves the target connection and its platform adapter and pushes the
// change. Errors return to the queue backend, which owns retry policy.
type PushExecutor struct {
	connections sync.ConnectionRepository
	adapters    sync.AdapterRegistry
	logger      *zap.Logger
}

// NewPushExecutor creates a push executor
func NewPushExecutor(
	connections sync.ConnectionRepository,
	adapters sync.AdapterRegistry,
	logger *zap.Logger,
) *PushExecutor {
	return &PushExecutor{
		connections: connections,
		adapters:    adapters,
		logger:      logger,
	}
}

// Execute pushes one propagation payload to its target platform. A target
// that was disabled after routing is skipped, not failed; its owner turned
// sync off on purpose.
func (e *PushExecutor) Execute(ctx context.Context, body []byte) error {
	payload, err := sync.UnmarshalPropagationPayload(body)
	if err != nil {
		return fmt.Errorf("decode propagation payload: %w", err)
	}

	conn, err := e.connections.FindByID(ctx, payload.TargetConnectionID)
	if err != nil {
		return fmt.Errorf("load target connection %s: %w", payload.TargetConnectionID, err)
	}
	if !conn.Enabled {
		e.logger.Debug("target connection disabled since routing, skipping push",
			zap.String("target_connection_id", conn.ID.String()),
			zap.String("entity_id", payload.EntityID.String()),
		)
		return nil
	}

	adapter, err := e.adapters.AdapterFor(conn.PlatformType)
	if err != nil {
		return fmt.Errorf("resolve adapter for %s: %w", conn.PlatformType, err)
	}

	if payload.Inventory {
		err = adapter.PushInventoryLevel(ctx, conn, payload)
	} else {
		err = adapter.PushProductChange(ctx, conn, payload)
	}
	if err != nil {
		return fmt.Errorf("push to %s connection %s: %w", conn.PlatformType, conn.ID, err)
	}

	e.logger.Debug("change pushed to target",
		zap.String("target_connection_id", conn.ID.String()),
		zap.String("entity_id", payload.EntityID.String()),
		zap.Bool("inventory", payload.Inventory),
		zap.Bool("should_delist", payload.ShouldDelist),
	)
	return nil
}
