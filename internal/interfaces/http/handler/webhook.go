package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/shared"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/telemetry"
	"github.com/sssync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// WebhookHandler ingests normalized platform change notifications. It dedups
// retried deliveries by correlation ID, publishes the change onto the event
// bus, and acknowledges promptly; propagation happens asynchronously.
type WebhookHandler struct {
	BaseHandler
	bus            shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(
	bus shared.EventPublisher,
	idempotency shared.IdempotencyStore,
	idempotencyTTL time.Duration,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    NewBaseHandler(logger),
		bus:            bus,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
	}
}

// IngestChange handles POST /webhooks/changes
func (h *WebhookHandler) IngestChange(c *gin.Context) {
	var req dto.WebhookChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "webhook.ingest_change",
		telemetry.Attr("change.type", req.ChangeType),
		telemetry.Attr("source.platform", req.SourcePlatform),
	)
	defer span.End()

	if req.CorrelationID != "" {
		fresh, err := h.idempotency.MarkProcessed(ctx, req.CorrelationID, h.idempotencyTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			h.InternalError(c, err)
			return
		}
		if !fresh {
			h.logger.Debug("duplicate webhook delivery",
				zap.String("correlation_id", req.CorrelationID),
			)
			h.Success(c, dto.WebhookAcceptedResponse{Accepted: true, Duplicate: true})
			return
		}
	}

	event, err := h.buildEvent(req)
	if err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}

	if err := h.bus.Publish(ctx, event); err != nil {
		telemetry.RecordError(span, err)
		h.InternalError(c, err)
		return
	}

	h.Accepted(c, dto.WebhookAcceptedResponse{
		Accepted: true,
		EventID:  event.EventID().String(),
	})
}

// buildEvent turns the validated request into the matching domain event
func (h *WebhookHandler) buildEvent(req dto.WebhookChangeRequest) (sync.ChangeEvent, error) {
	// Binding already validated the UUID shapes
	userID := uuid.MustParse(req.UserID)
	entityID := uuid.MustParse(req.EntityID)
	sourceConnID := uuid.MustParse(req.SourceConnectionID)
	platformType := platform.Type(req.SourcePlatform)

	if req.ChangeType == "inventory" {
		var locationID *uuid.UUID
		if req.LocationID != "" {
			id := uuid.MustParse(req.LocationID)
			locationID = &id
		}
		var quantity int64
		if req.NewQuantity != nil {
			quantity = *req.NewQuantity
		}
		return sync.NewInventoryChangeEvent(userID, entityID, sourceConnID, platformType, locationID, quantity, req.CorrelationID)
	}

	kind := sync.ChangeKind(req.ChangeKind)
	if req.ChangeKind == "" {
		kind = sync.ChangeKindUpdated
	}
	return sync.NewProductChangeEvent(userID, entityID, kind, sourceConnID, platformType, req.CorrelationID)
}
