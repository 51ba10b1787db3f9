package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// SyncStatus is the operator-facing status snapshot for one connection
type SyncStatus struct {
	ConnectionID             uuid.UUID     `json:"connection_id"`
	PlatformType             platform.Type `json:"platform_type"`
	DisplayName              string        `json:"display_name"`
	WebhooksRegistered       bool          `json:"webhooks_registered"`
	WebhookCount             int           `json:"webhook_count"`
	CrossPlatformSyncEnabled bool          `json:"cross_platform_sync_enabled"`
	Errors                   []string      `json:"errors"`
}

// ManagementService exposes the sync management surface: enabling and
// disabling sync per connection, status reads, and connectivity checks.
type ManagementService struct {
	connections sync.ConnectionRepository
	adapters    sync.AdapterRegistry
	recorder    sync.ActivityRecorder
	logger      *zap.Logger
}

// NewManagementService creates a sync management service
func NewManagementService(
	connections sync.ConnectionRepository,
	adapters sync.AdapterRegistry,
	recorder sync.ActivityRecorder,
	logger *zap.Logger,
) *ManagementService {
	return &ManagementService{
		connections: connections,
		adapters:    adapters,
		recorder:    recorder,
		logger:      logger,
	}
}

// EnableSync turns cross-platform sync on for a connection, merging any
// explicitly-set rule overrides onto the current rules
func (s *ManagementService) EnableSync(ctx context.Context, connectionID uuid.UUID, overrides sync.SyncRules) (*sync.Connection, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	conn.EnableSync(overrides)
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connection %s: %w", connectionID, err)
	}

	s.recorder.RecordActivity(ctx, conn.UserID, "sync.enabled", map[string]any{
		"connection_id": connectionID.String(),
		"platform_type": conn.PlatformType.String(),
	})
	return conn, nil
}

// DisableSync turns cross-platform sync off for a connection. Rules are
// kept so a later enable restores the previous configuration.
func (s *ManagementService) DisableSync(ctx context.Context, connectionID uuid.UUID) (*sync.Connection, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	conn.DisableSync()
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connection %s: %w", connectionID, err)
	}

	s.recorder.RecordActivity(ctx, conn.UserID, "sync.disabled", map[string]any{
		"connection_id": connectionID.String(),
		"platform_type": conn.PlatformType.String(),
	})
	return conn, nil
}

// GetStatus returns the status snapshot for a connection
func (s *ManagementService) GetStatus(ctx context.Context, connectionID uuid.UUID) (*SyncStatus, error) {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	errorList := conn.LastErrors
	if errorList == nil {
		errorList = []string{}
	}
	return &SyncStatus{
		ConnectionID:             conn.ID,
		PlatformType:             conn.PlatformType,
		DisplayName:              conn.DisplayName,
		WebhooksRegistered:       conn.WebhooksRegistered,
		WebhookCount:             conn.WebhookCount,
		CrossPlatformSyncEnabled: conn.Enabled,
		Errors:                   errorList,
	}, nil
}

// TestConnectivity verifies the connection's credentials against the
// platform API. Failures are recorded on the connection's error list.
func (s *ManagementService) TestConnectivity(ctx context.Context, connectionID uuid.UUID) error {
	conn, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		return err
	}

	adapter, err := s.adapters.AdapterFor(conn.PlatformType)
	if err != nil {
		return err
	}

	if err := adapter.TestConnection(ctx, conn); err != nil {
		conn.RecordError(fmt.Sprintf("connectivity test failed: %v", err))
		if saveErr := s.connections.Save(ctx, conn); saveErr != nil {
			s.logger.Error("failed to record connectivity error",
				zap.String("connection_id", connectionID.String()),
				zap.Error(saveErr),
			)
		}
		return fmt.Errorf("test connection %s: %w", connectionID, err)
	}

	s.recorder.RecordActivity(ctx, conn.UserID, "sync.connectivity.verified", map[string]any{
		"connection_id": connectionID.String(),
		"platform_type": conn.PlatformType.String(),
	})
	return nil
}
