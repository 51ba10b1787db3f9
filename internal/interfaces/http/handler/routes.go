package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the webhook ingestion endpoint
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/changes", h.IngestChange)
}

// RegisterRoutes wires the per-connection sync management endpoints
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	connections := rg.Group("/connections/:id/sync")
	connections.POST("/enable", h.EnableSync)
	connections.POST("/disable", h.DisableSync)
	connections.GET("/status", h.GetStatus)
	connections.POST("/test", h.TestConnectivity)
}

// RegisterRoutes wires the conflict audit endpoints
func (h *ConflictHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/conflicts", h.ListByUser)
	rg.GET("/users/:id/conflicts/pending", h.ListPendingReview)
	rg.GET("/entities/:id/conflicts", h.ListByEntity)
}

// RegisterRoutes wires the gap analysis and backfill job endpoints
func (h *BackfillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connections/:id/backfill/analysis", h.AnalyzeGaps)
	rg.GET("/users/:id/backfill/jobs", h.ListJobs)

	jobs := rg.Group("/backfill/jobs")
	jobs.POST("", h.CreateJob)
	jobs.GET("/:id", h.GetJob)
	jobs.GET("/:id/items", h.ListItems)
	jobs.POST("/:id/cancel", h.CancelJob)
}
