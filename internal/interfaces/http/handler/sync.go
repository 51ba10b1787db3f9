package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	appsync "github.com/sssync/backend/internal/application/sync"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SyncHandler exposes the sync management surface per connection
type SyncHandler struct {
	BaseHandler
	service *appsync.ManagementService
}

// NewSyncHandler creates a sync management handler
func NewSyncHandler(service *appsync.ManagementService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// EnableSync handles POST /connections/:id/sync/enable
func (h *SyncHandler) EnableSync(c *gin.Context) {
	connectionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SyncRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}

	conn, err := h.service.EnableSync(c.Request.Context(), connectionID, sync.SyncRules{
		PropagateChanges:    req.PropagateChanges,
		PropagateCreates:    req.PropagateCreates,
		PropagateUpdates:    req.PropagateUpdates,
		PropagateDeletes:    req.PropagateDeletes,
		PropagateInventory:  req.PropagateInventory,
		RealtimeSyncEnabled: req.RealtimeSyncEnabled,
	})
	if err != nil {
		h.connectionError(c, err)
		return
	}
	h.Success(c, conn)
}

// DisableSync handles POST /connections/:id/sync/disable
func (h *SyncHandler) DisableSync(c *gin.Context) {
	connectionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	conn, err := h.service.DisableSync(c.Request.Context(), connectionID)
	if err != nil {
		h.connectionError(c, err)
		return
	}
	h.Success(c, conn)
}

// GetStatus handles GET /connections/:id/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	connectionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), connectionID)
	if err != nil {
		h.connectionError(c, err)
		return
	}
	h.Success(c, dto.SyncStatusResponse{
		ConnectionID:             status.ConnectionID.String(),
		PlatformType:             status.PlatformType.String(),
		DisplayName:              status.DisplayName,
		WebhooksRegistered:       status.WebhooksRegistered,
		WebhookCount:             status.WebhookCount,
		CrossPlatformSyncEnabled: status.CrossPlatformSyncEnabled,
		Errors:                   status.Errors,
	})
}

// TestConnectivity handles POST /connections/:id/sync/test
func (h *SyncHandler) TestConnectivity(c *gin.Context) {
	connectionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.TestConnectivity(c.Request.Context(), connectionID); err != nil {
		if errors.Is(err, sync.ErrConnectionNotFound) {
			h.NotFound(c, "connection not found")
			return
		}
		h.Error(c, dto.ErrCodeConflict, err.Error())
		return
	}
	h.Success(c, gin.H{"connected": true})
}

func (h *SyncHandler) connectionError(c *gin.Context, err error) {
	if errors.Is(err, sync.ErrConnectionNotFound) {
		h.NotFound(c, "connection not found")
		return
	}
	h.InternalError(c, err)
}
