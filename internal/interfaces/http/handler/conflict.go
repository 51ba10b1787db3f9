package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const defaultConflictLimit = 50

// ConflictHandler exposes the conflict audit trail and the pending-review
// queue. Records are read-only from here; resolution writes happen in the
// propagation path.
type ConflictHandler struct {
	BaseHandler
	events sync.ConflictEventRepository
}

// NewConflictHandler creates a conflict audit handler
func NewConflictHandler(events sync.ConflictEventRepository, logger *zap.Logger) *ConflictHandler {
	return &ConflictHandler{
		BaseHandler: NewBaseHandler(logger),
		events:      events,
	}
}

// ListByUser handles GET /users/:id/conflicts
func (h *ConflictHandler) ListByUser(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	records, err := h.events.FindByUser(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		h.InternalError(c, err)
		return
	}
	h.Success(c, toConflictResponses(records))
}

// ListPendingReview handles GET /users/:id/conflicts/pending
func (h *ConflictHandler) ListPendingReview(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	records, err := h.events.FindPendingReview(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		h.InternalError(c, err)
		return
	}
	h.Success(c, toConflictResponses(records))
}

// ListByEntity handles GET /entities/:id/conflicts
func (h *ConflictHandler) ListByEntity(c *gin.Context) {
	entityID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	records, err := h.events.FindByEntity(c.Request.Context(), entityID, queryLimit(c))
	if err != nil {
		h.InternalError(c, err)
		return
	}
	h.Success(c, toConflictResponses(records))
}

// queryLimit reads the limit query parameter, bounded to a sane range
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultConflictLimit)))
	if err != nil || limit <= 0 {
		return defaultConflictLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func toConflictResponses(records []sync.ConflictEvent) []dto.ConflictEventResponse {
	out := make([]dto.ConflictEventResponse, 0, len(records))
	for _, record := range records {
		out = append(out, dto.ConflictEventResponse{
			ID:             record.ID.String(),
			EntityType:     record.EntityType,
			EntityID:       record.EntityID.String(),
			Field:          string(record.Field),
			CanonicalValue: rawJSON(record.CanonicalValue),
			PlatformValue:  rawJSON(record.PlatformValue),
			PlatformType:   record.PlatformType.String(),
			Resolution:     rawJSON(record.Resolution),
			DetectedAt:     record.DetectedAt.Format(time.RFC3339),
			ResolvedAt:     record.ResolvedAt.Format(time.RFC3339),
		})
	}
	return out
}

// rawJSON passes stored JSON through to the response without re-encoding
func rawJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
