package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sssync/backend/internal/domain/backfill"
	"go.uber.org/zap"
)

// Executor runs backfill envelopes pulled off the dispatch queues: it walks
// the job's work items and fills gaps through the content generator port.
// Without a generator the items are skipped, never failed; the job still
// completes so the operator sees the outcome.
type Executor struct {
	jobs      backfill.BackfillJobRepository
	items     backfill.BackfillItemRepository
	generator backfill.ContentGenerator
	logger    *zap.Logger
}

// NewExecutor creates a backfill executor. generator may be nil.
func NewExecutor(
	jobs backfill.BackfillJobRepository,
	items backfill.BackfillItemRepository,
	generator backfill.ContentGenerator,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		jobs:      jobs,
		items:     items,
		generator: generator,
		logger:    logger,
	}
}

// Execute processes one backfill job envelope. A job cancelled while queued
// is acknowledged without work. Every job write after creation is guarded
// on the job still being active, so a concurrent cancellation stops the
// worker after the item in flight and is never overwritten. Context
// cancellation mid-job persists the progress made and returns the error so
// the queue backend can retry.
func (e *Executor) Execute(ctx context.Context, body []byte) error {
	var payload JobDispatchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode backfill payload: %w", err)
	}

	job, err := e.jobs.FindByID(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load backfill job %s: %w", payload.JobID, err)
	}
	if job.Status.IsTerminal() {
		e.logger.Info("backfill job already terminal, skipping",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	}

	if job.Status == backfill.JobStatusPending {
		if err := job.Start(); err != nil {
			return err
		}
		ok, err := e.jobs.UpdateIf(ctx, job, []backfill.JobStatus{backfill.JobStatusPending})
		if err != nil {
			return fmt.Errorf("start backfill job %s: %w", job.ID, err)
		}
		if !ok {
			e.logger.Info("backfill job no longer pending, skipping",
				zap.String("job_id", job.ID.String()),
			)
			return nil
		}
	}

	items, err := e.items.FindByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load items for job %s: %w", job.ID, err)
	}

	wanted := make(map[backfill.DataType]bool, len(payload.DataTypes))
	for _, dt := range payload.DataTypes {
		wanted[dt] = true
	}

	inProgress := []backfill.JobStatus{backfill.JobStatusInProgress}
	processed, failed := job.ProcessedItems, job.FailedItems
	for i := range items {
		if ctx.Err() != nil {
			job.UpdateProgress(processed, failed)
			if _, saveErr := e.jobs.UpdateIf(context.WithoutCancel(ctx), job, inProgress); saveErr != nil {
				e.logger.Error("failed to persist progress on cancellation",
					zap.String("job_id", job.ID.String()),
					zap.Error(saveErr),
				)
			}
			return ctx.Err()
		}

		item := &items[i]
		if item.Status.IsTerminal() || !wanted[item.DataType] {
			continue
		}

		e.processItem(ctx, item)
		switch item.Status {
		case backfill.ItemStatusFailed:
			failed++
		default:
			processed++
		}

		if err := e.items.Update(ctx, item); err != nil {
			e.logger.Error("failed to persist backfill item",
				zap.String("item_id", item.ID.String()),
				zap.Error(err),
			)
		}

		// The guarded progress write doubles as the cancellation check
		// between items: zero rows matched means the job went terminal
		// under us and the remaining items stay untouched.
		job.UpdateProgress(processed, failed)
		ok, err := e.jobs.UpdateIf(ctx, job, inProgress)
		if err != nil {
			e.logger.Error("failed to persist backfill progress",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			e.logger.Info("backfill job cancelled mid-run, stopping",
				zap.String("job_id", job.ID.String()),
				zap.Int("processed", processed),
				zap.Int("failed", failed),
			)
			return nil
		}
	}

	job.UpdateProgress(processed, failed)
	job.Complete()
	ok, err := e.jobs.UpdateIf(ctx, job, inProgress)
	if err != nil {
		return fmt.Errorf("complete backfill job %s: %w", job.ID, err)
	}
	if !ok {
		e.logger.Info("backfill job cancelled before completion, leaving terminal state",
			zap.String("job_id", job.ID.String()),
		)
		return nil
	}

	e.logger.Info("backfill job finished",
		zap.String("job_id", job.ID.String()),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)
	return nil
}

// processItem runs one item through the generator, if one is wired
func (e *Executor) processItem(ctx context.Context, item *backfill.BackfillItem) {
	if e.generator == nil {
		item.Skip()
		return
	}

	started := time.Now()
	content, err := e.generator.Generate(ctx, item)
	took := time.Since(started)
	if err != nil {
		e.logger.Warn("content generation failed",
			zap.String("item_id", item.ID.String()),
			zap.String("data_type", string(item.DataType)),
			zap.Error(err),
		)
		item.Fail(took)
		return
	}
	item.Complete(content.Value, content.Confidence, took)
}
