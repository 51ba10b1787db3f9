package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/backfill"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// Gap-count thresholds above which a category is escalated to high priority
const (
	photoGapHighThreshold       = 50
	descriptionGapHighThreshold = 100
)

// ---------------------------------------------------------------------------
// PlannerConfig
// ---------------------------------------------------------------------------

// PlannerConfig carries the cost model for gap remediation estimates
type PlannerConfig struct {
	// UnitCosts is the per-item remediation cost per data type, in USD
	UnitCosts map[backfill.DataType]decimal.Decimal
	// BatchSize is how many items one processing hour covers
	BatchSize int
}

// DefaultPlannerConfig returns the built-in cost model
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		UnitCosts: map[backfill.DataType]decimal.Decimal{
			backfill.DataTypePhotos:       decimal.NewFromFloat(0.50),
			backfill.DataTypeDescriptions: decimal.NewFromFloat(0.03),
			backfill.DataTypeBarcodes:     decimal.NewFromFloat(0.10),
			backfill.DataTypePricing:      decimal.NewFromFloat(0.05),
		},
		BatchSize: 25,
	}
}

func (c PlannerConfig) unitCost(dataType backfill.DataType) decimal.Decimal {
	if cost, ok := c.UnitCosts[dataType]; ok {
		return cost
	}
	return decimal.Zero
}

// estimatedHours is ceil(count / batch size)
func (c PlannerConfig) estimatedHours(count int) int {
	if count <= 0 || c.BatchSize <= 0 {
		return 0
	}
	return (count + c.BatchSize - 1) / c.BatchSize
}

// ---------------------------------------------------------------------------
// Planner
// ---------------------------------------------------------------------------

// Planner analyzes connections for listing data gaps and turns the findings
// into prioritized, costed remediation jobs. It creates, reads and cancels
// jobs; executing the remediation is the queue worker's concern.
type Planner struct {
	connections sync.ConnectionRepository
	mappings    sync.ProductMappingRepository
	jobs        backfill.BackfillJobRepository
	items       backfill.BackfillItemRepository
	dispatcher  sync.Dispatcher
	behaviors   *platform.BehaviorRegistry
	recorder    sync.ActivityRecorder
	config      PlannerConfig
	logger      *zap.Logger
}

// NewPlanner creates a backfill planner
func NewPlanner(
	connections sync.ConnectionRepository,
	mappings sync.ProductMappingRepository,
	jobs backfill.BackfillJobRepository,
	items backfill.BackfillItemRepository,
	dispatcher sync.Dispatcher,
	behaviors *platform.BehaviorRegistry,
	recorder sync.ActivityRecorder,
	config PlannerConfig,
	logger *zap.Logger,
) *Planner {
	if config.BatchSize <= 0 {
		config = DefaultPlannerConfig()
	}
	return &Planner{
		connections: connections,
		mappings:    mappings,
		jobs:        jobs,
		items:       items,
		dispatcher:  dispatcher,
		behaviors:   behaviors,
		recorder:    recorder,
		config:      config,
		logger:      logger,
	}
}

// gapEntry is one variant missing one data type
type gapEntry struct {
	variantID     uuid.UUID
	originalValue string
}

// collectGaps inspects every enabled mapping's variants and groups the
// missing-data findings per category
func (p *Planner) collectGaps(ctx context.Context, connectionID uuid.UUID) (int, map[backfill.DataType][]gapEntry, error) {
	mappings, err := p.mappings.FindEnabledByConnection(ctx, connectionID)
	if err != nil {
		return 0, nil, fmt.Errorf("load mappings for connection %s: %w", connectionID, err)
	}

	total := 0
	gaps := map[backfill.DataType][]gapEntry{}
	for _, mapping := range mappings {
		for _, variant := range mapping.Variants {
			total++
			if variant.MissingPhotos() {
				gaps[backfill.DataTypePhotos] = append(gaps[backfill.DataTypePhotos], gapEntry{variantID: variant.ID})
			}
			if variant.MissingDescription() {
				gaps[backfill.DataTypeDescriptions] = append(gaps[backfill.DataTypeDescriptions], gapEntry{variantID: variant.ID, originalValue: variant.Description})
			}
			if variant.MissingBarcode() {
				gaps[backfill.DataTypeBarcodes] = append(gaps[backfill.DataTypeBarcodes], gapEntry{variantID: variant.ID})
			}
			if variant.MissingPricing() {
				gaps[backfill.DataTypePricing] = append(gaps[backfill.DataTypePricing], gapEntry{variantID: variant.ID, originalValue: variant.Price.String()})
			}
		}
	}
	return total, gaps, nil
}

// AnalyzeGaps inspects a connection's enabled mappings and produces a gap
// analysis with a prioritized, costed recommendation per nonzero category
func (p *Planner) AnalyzeGaps(ctx context.Context, connectionID uuid.UUID) (*backfill.GapAnalysis, error) {
	conn, err := p.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	total, gaps, err := p.collectGaps(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	analysis := &backfill.GapAnalysis{
		ConnectionID:        connectionID,
		PlatformType:        conn.PlatformType,
		TotalVariants:       total,
		MissingPhotos:       len(gaps[backfill.DataTypePhotos]),
		MissingDescriptions: len(gaps[backfill.DataTypeDescriptions]),
		MissingBarcodes:     len(gaps[backfill.DataTypeBarcodes]),
		MissingPricing:      len(gaps[backfill.DataTypePricing]),
		AnalyzedAt:          time.Now(),
	}
	analysis.Recommendations = p.buildRecommendations(analysis, conn.PlatformType)
	return analysis, nil
}

// buildRecommendations produces one recommendation per nonzero gap category
func (p *Planner) buildRecommendations(analysis *backfill.GapAnalysis, platformType platform.Type) []backfill.Recommendation {
	recommendations := make([]backfill.Recommendation, 0, 4)

	order := []backfill.DataType{
		backfill.DataTypePhotos,
		backfill.DataTypeDescriptions,
		backfill.DataTypeBarcodes,
		backfill.DataTypePricing,
	}
	for _, dataType := range order {
		count := analysis.GapCount(dataType)
		if count == 0 {
			continue
		}
		recommendations = append(recommendations, backfill.Recommendation{
			DataType:       dataType,
			Action:         remediationAction(dataType),
			Priority:       p.gapPriority(dataType, count, platformType),
			Count:          count,
			EstimatedCost:  p.config.unitCost(dataType).Mul(decimal.NewFromInt(int64(count))),
			EstimatedHours: p.config.estimatedHours(count),
		})
	}
	return recommendations
}

// gapPriority applies the category thresholds, with a platform override:
// photo gaps are urgent on platforms where listings fail without images
func (p *Planner) gapPriority(dataType backfill.DataType, count int, platformType platform.Type) backfill.Priority {
	switch dataType {
	case backfill.DataTypePhotos:
		if p.behaviors.ListingRequiresImages(platformType) {
			return backfill.PriorityUrgent
		}
		if count > photoGapHighThreshold {
			return backfill.PriorityHigh
		}
		return backfill.PriorityMedium
	case backfill.DataTypeDescriptions:
		if count > descriptionGapHighThreshold {
			return backfill.PriorityHigh
		}
		return backfill.PriorityMedium
	case backfill.DataTypeBarcodes:
		return backfill.PriorityLow
	default:
		return backfill.PriorityMedium
	}
}

func remediationAction(dataType backfill.DataType) string {
	switch dataType {
	case backfill.DataTypePhotos:
		return "Request product photos from seller or source listing images"
	case backfill.DataTypeDescriptions:
		return "Generate product descriptions"
	case backfill.DataTypeBarcodes:
		return "Scan or look up product barcodes"
	case backfill.DataTypePricing:
		return "Review and set variant pricing"
	default:
		return "Review missing data"
	}
}

// ---------------------------------------------------------------------------
// Job lifecycle
// ---------------------------------------------------------------------------

// CreateJobInput carries the parameters for creating a remediation job
type CreateJobInput struct {
	UserID       uuid.UUID
	ConnectionID uuid.UUID
	JobType      backfill.JobType
	DataTypes    []backfill.DataType
	Priority     backfill.Priority
	// Preferences are executor-specific knobs passed through opaquely
	Preferences map[string]any
}

// JobDispatchPayload is the dispatch envelope body handed to the queue for
// a remediation job
type JobDispatchPayload struct {
	JobID        uuid.UUID           `json:"job_id"`
	UserID       uuid.UUID           `json:"user_id"`
	ConnectionID uuid.UUID           `json:"connection_id"`
	JobType      backfill.JobType    `json:"job_type"`
	DataTypes    []backfill.DataType `json:"data_types"`
	Preferences  map[string]any      `json:"preferences,omitempty"`
}

// CreateJob analyzes the connection, persists a pending job covering the
// requested data types, seeds its work items, and hands the job to the
// dispatcher. A failed analysis aborts creation.
func (p *Planner) CreateJob(ctx context.Context, input CreateJobInput) (*backfill.BackfillJob, error) {
	if len(input.DataTypes) == 0 {
		return nil, backfill.ErrJobNoDataTypes
	}
	for _, dataType := range input.DataTypes {
		if !dataType.IsValid() {
			return nil, fmt.Errorf("%w: %q", backfill.ErrJobNoDataTypes, dataType)
		}
	}

	conn, err := p.connections.FindByID(ctx, input.ConnectionID)
	if err != nil {
		return nil, err
	}

	_, gaps, err := p.collectGaps(ctx, input.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backfill.ErrAnalysisUnavailable, err)
	}

	totalItems := 0
	estimatedCost := decimal.Zero
	estimatedHours := 0
	for _, dataType := range input.DataTypes {
		count := len(gaps[dataType])
		totalItems += count
		estimatedCost = estimatedCost.Add(p.config.unitCost(dataType).Mul(decimal.NewFromInt(int64(count))))
		estimatedHours += p.config.estimatedHours(count)
	}

	job, err := backfill.NewBackfillJob(input.UserID, input.ConnectionID, input.JobType, input.Priority, totalItems, backfill.JobMetadata{
		PlatformType:     conn.PlatformType,
		MissingDataTypes: input.DataTypes,
		EstimatedCost:    estimatedCost,
		EstimatedHours:   estimatedHours,
	})
	if err != nil {
		return nil, err
	}

	if err := p.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save backfill job: %w", err)
	}

	p.seedItems(ctx, job, input.DataTypes, gaps)

	payload, err := json.Marshal(JobDispatchPayload{
		JobID:        job.ID,
		UserID:       input.UserID,
		ConnectionID: input.ConnectionID,
		JobType:      input.JobType,
		DataTypes:    input.DataTypes,
		Preferences:  input.Preferences,
	})
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	env := sync.DispatchEnvelope{
		Kind:     sync.DispatchKindBackfill,
		UserID:   input.UserID,
		Priority: input.Priority.QueuePriority(),
		Payload:  payload,
	}
	if err := p.dispatcher.Enqueue(ctx, env); err != nil {
		// The job row stays; mark it failed so the operator sees why it
		// never progressed. A failed status write here is logged only.
		job.Fail(fmt.Sprintf("dispatch failed: %v", err))
		if saveErr := p.jobs.Save(ctx, job); saveErr != nil {
			p.logger.Error("failed to persist job failure after dispatch error",
				zap.String("job_id", job.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, fmt.Errorf("dispatch backfill job %s: %w", job.ID, err)
	}

	p.recorder.RecordActivity(ctx, input.UserID, "backfill.job.created", map[string]any{
		"job_id":        job.ID.String(),
		"connection_id": input.ConnectionID.String(),
		"job_type":      string(input.JobType),
		"total_items":   totalItems,
		"priority":      string(input.Priority),
	})
	return job, nil
}

// seedItems persists one pending item per (variant, data type) gap. Failure
// is logged; the executor can rebuild the item set from the analysis.
func (p *Planner) seedItems(ctx context.Context, job *backfill.BackfillJob, dataTypes []backfill.DataType, gaps map[backfill.DataType][]gapEntry) {
	items := make([]*backfill.BackfillItem, 0, job.TotalItems)
	for _, dataType := range dataTypes {
		for _, entry := range gaps[dataType] {
			items = append(items, backfill.NewBackfillItem(job.ID, entry.variantID, dataType, entry.originalValue))
		}
	}
	if len(items) == 0 {
		return
	}
	if err := p.items.SaveBatch(ctx, items); err != nil {
		p.logger.Error("failed to seed backfill items",
			zap.String("job_id", job.ID.String()),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
	}
}

// GetJob returns one job by ID
func (p *Planner) GetJob(ctx context.Context, jobID uuid.UUID) (*backfill.BackfillJob, error) {
	return p.jobs.FindByID(ctx, jobID)
}

// ListJobs returns a user's jobs, newest first
func (p *Planner) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]backfill.BackfillJob, error) {
	return p.jobs.FindByUser(ctx, userID, limit)
}

// ListItems returns a job's work items
func (p *Planner) ListItems(ctx context.Context, jobID uuid.UUID) ([]backfill.BackfillItem, error) {
	return p.items.FindByJob(ctx, jobID)
}

// CancelJob cancels a job if it is still pending or in progress. The
// transition is a compare-and-set at the store so a racing worker update
// cannot resurrect the job. Returns false when the job was already terminal.
func (p *Planner) CancelJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	cancelled, err := p.jobs.CancelIf(ctx, jobID, []backfill.JobStatus{
		backfill.JobStatusPending,
		backfill.JobStatusInProgress,
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		p.logger.Info("backfill job cancelled", zap.String("job_id", jobID.String()))
	}
	return cancelled, nil
}
