package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbackfill "github.com/sssync/backend/internal/application/backfill"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// BackfillHandler exposes gap analysis and the remediation job lifecycle
type BackfillHandler struct {
	BaseHandler
	planner *appbackfill.Planner
}

// NewBackfillHandler creates a backfill handler
func NewBackfillHandler(planner *appbackfill.Planner, logger *zap.Logger) *BackfillHandler {
	return &BackfillHandler{
		BaseHandler: NewBaseHandler(logger),
		planner:     planner,
	}
}

// AnalyzeGaps handles GET /connections/:id/backfill/analysis
func (h *BackfillHandler) AnalyzeGaps(c *gin.Context) {
	connectionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	analysis, err := h.planner.AnalyzeGaps(c.Request.Context(), connectionID)
	if err != nil {
		if errors.Is(err, sync.ErrConnectionNotFound) {
			h.NotFound(c, "connection not found")
			return
		}
		h.InternalError(c, err)
		return
	}
	h.Success(c, analysis)
}

// CreateJob handles POST /backfill/jobs
func (h *BackfillHandler) CreateJob(c *gin.Context) {
	var req dto.CreateBackfillJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.ErrCodeValidation, err.Error())
		return
	}

	jobType := backfill.JobType(req.JobType)
	if !jobType.IsValid() {
		h.BadRequest(c, "invalid job_type")
		return
	}

	dataTypes := make([]backfill.DataType, 0, len(req.DataTypes))
	for _, dt := range req.DataTypes {
		dataTypes = append(dataTypes, backfill.DataType(dt))
	}
	priority := backfill.Priority(req.Priority)
	if req.Priority == "" {
		priority = backfill.PriorityMedium
	}

	job, err := h.planner.CreateJob(c.Request.Context(), appbackfill.CreateJobInput{
		UserID:       uuid.MustParse(req.UserID),
		ConnectionID: uuid.MustParse(req.ConnectionID),
		JobType:      jobType,
		DataTypes:    dataTypes,
		Priority:     priority,
		Preferences:  req.Preferences,
	})
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrConnectionNotFound):
			h.NotFound(c, "connection not found")
		case errors.Is(err, backfill.ErrJobNoDataTypes):
			h.BadRequest(c, err.Error())
		case errors.Is(err, backfill.ErrAnalysisUnavailable):
			h.Error(c, dto.ErrCodeConflict, "gap analysis failed, job not created")
		default:
			h.InternalError(c, err)
		}
		return
	}
	h.Created(c, toJobResponse(job))
}

// GetJob handles GET /backfill/jobs/:id
func (h *BackfillHandler) GetJob(c *gin.Context) {
	jobID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.planner.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, backfill.ErrJobNotFound) {
			h.NotFound(c, "job not found")
			return
		}
		h.InternalError(c, err)
		return
	}
	h.Success(c, toJobResponse(job))
}

// ListJobs handles GET /users/:id/backfill/jobs
func (h *BackfillHandler) ListJobs(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	jobs, err := h.planner.ListJobs(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		h.InternalError(c, err)
		return
	}

	out := make([]dto.BackfillJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	h.Success(c, out)
}

// ListItems handles GET /backfill/jobs/:id/items
func (h *BackfillHandler) ListItems(c *gin.Context) {
	jobID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.planner.ListItems(c.Request.Context(), jobID)
	if err != nil {
		h.InternalError(c, err)
		return
	}

	out := make([]dto.BackfillItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.BackfillItemResponse{
			ID:             item.ID.String(),
			EntityID:       item.EntityID.String(),
			DataType:       string(item.DataType),
			Status:         string(item.Status),
			OriginalValue:  item.OriginalValue,
			GeneratedValue: item.GeneratedValue,
			Confidence:     item.Confidence.String(),
		})
	}
	h.Success(c, out)
}

// CancelJob handles POST /backfill/jobs/:id/cancel. A job already in a
// terminal state yields 409 rather than pretending the cancel took effect.
func (h *BackfillHandler) CancelJob(c *gin.Context) {
	jobID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	cancelled, err := h.planner.CancelJob(c.Request.Context(), jobID)
	if err != nil {
		h.InternalError(c, err)
		return
	}
	if !cancelled {
		h.Conflict(c, "job is not in a cancellable state")
		return
	}
	h.Success(c, dto.CancelJobResponse{Cancelled: true})
}

func toJobResponse(job *backfill.BackfillJob) dto.BackfillJobResponse {
	resp := dto.BackfillJobResponse{
		ID:             job.ID.String(),
		UserID:         job.UserID.String(),
		ConnectionID:   job.ConnectionID.String(),
		Type:           string(job.Type),
		Status:         string(job.Status),
		Priority:       string(job.Priority),
		Progress:       job.Progress,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FailedItems:    job.FailedItems,
		EstimatedCost:  job.Metadata.EstimatedCost.StringFixed(2),
		EstimatedHours: job.Metadata.EstimatedHours,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}
