package dto

// CreateBackfillJobRequest creates a remediation job for a connection
type CreateBackfillJobRequest struct {
	UserID       string         `json:"user_id" binding:"required,uuid"`
	ConnectionID string         `json:"connection_id" binding:"required,uuid"`
	JobType      string         `json:"job_type" binding:"required"`
	DataTypes    []string       `json:"data_types" binding:"required,min=1,dive,oneof=photos descriptions barcodes pricing"`
	Priority     string         `json:"priority" binding:"omitempty,oneof=urgent high medium low"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

// BackfillJobResponse is one remediation job
type BackfillJobResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	ConnectionID   string  `json:"connection_id"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	Progress       int     `json:"progress"`
	TotalItems     int     `json:"total_items"`
	ProcessedItems int     `json:"processed_items"`
	FailedItems    int     `json:"failed_items"`
	EstimatedCost  string  `json:"estimated_cost"`
	EstimatedHours int     `json:"estimated_hours"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	CreatedAt      string  `json:"created_at"`
	CompletedAt    *string `json:"completed_at,omitempty"`
}

// BackfillItemResponse is one remediation work item
type BackfillItemResponse struct {
	ID             string `json:"id"`
	EntityID       string `json:"entity_id"`
	DataType       string `json:"data_type"`
	Status         string `json:"status"`
	OriginalValue  string `json:"original_value,omitempty"`
	GeneratedValue string `json:"generated_value,omitempty"`
	Confidence     string `json:"confidence"`
}

// CancelJobResponse reports the outcome of a cancellation request
type CancelJobResponse struct {
	Cancelled bool `json:"cancelled"`
}
