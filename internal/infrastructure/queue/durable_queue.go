package queue

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// DurableQueueConfig holds configuration for the durable queue
type DurableQueueConfig struct {
	Workers          int
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultDurableQueueConfig returns default configuration
func DefaultDurableQueueConfig() DurableQueueConfig {
	return DurableQueueConfig{
		Workers:          4,
		BatchSize:        100,
		PollInterval:     time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// DurableQueue is the heavy-load backend: envelopes are persisted as
// dispatch jobs with bounded retries and exponential backoff, processed by
// a background worker pool. Jobs survive a process restart.
type DurableQueue struct {
	jobs   sync.DispatchJobRepository
	run    Executor
	config DurableQueueConfig
	logger *zap.Logger

	cancel context.CancelFunc
	wg     gosync.WaitGroup
	work   chan *sync.DispatchJob
}

// NewDurableQueue creates a durable queue over the dispatch job store
func NewDurableQueue(jobs sync.DispatchJobRepository, run Executor, config DurableQueueConfig, logger *zap.Logger) *DurableQueue {
	if config.Workers <= 0 {
		config = DefaultDurableQueueConfig()
	}
	return &DurableQueue{
		jobs:   jobs,
		run:    run,
		config: config,
		logger: logger,
	}
}

// Enqueue persists the envelope as a pending dispatch job. The worker pool
// picks it up on the next poll.
func (q *DurableQueue) Enqueue(ctx context.Context, env sync.DispatchEnvelope) error {
	job := sync.NewDispatchJob(env)
	if err := q.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("persist dispatch job: %w", err)
	}
	return nil
}

// Start launches the poll loop and the worker pool
func (q *DurableQueue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.work = make(chan *sync.DispatchJob, q.config.BatchSize)

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	q.wg.Add(1)
	go q.pollLoop(ctx)

	if q.config.CleanupEnabled {
		q.wg.Add(1)
		go q.cleanupLoop(ctx)
	}

	q.logger.Info("durable queue started",
		zap.Int("workers", q.config.Workers),
		zap.Int("batch_size", q.config.BatchSize),
		zap.Duration("poll_interval", q.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight jobs to finish, bounded by
// the given context
func (q *DurableQueue) Stop(ctx context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("durable queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns job counts per status
func (q *DurableQueue) Stats(ctx context.Context) (map[sync.DispatchStatus]int64, error) {
	return q.jobs.CountByStatus(ctx)
}

// pollLoop claims batches of due jobs and feeds them to the workers
func (q *DurableQueue) pollLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(q.work)
			return
		case <-ticker.C:
			q.pollBatch(ctx)
		}
	}
}

func (q *DurableQueue) pollBatch(ctx context.Context) {
	due, err := q.jobs.FindDue(ctx, time.Now(), q.config.BatchSize)
	if err != nil {
		q.logger.Error("failed to find due dispatch jobs", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(due))
	for i, job := range due {
		ids[i] = job.ID
	}

	// Claim atomically so a second process polling the same store cannot
	// run the same job.
	claimed, err := q.jobs.MarkProcessing(ctx, ids)
	if err != nil {
		q.logger.Error("failed to claim dispatch jobs", zap.Error(err))
		return
	}

	for _, job := range claimed {
		select {
		case <-ctx.Done():
			return
		case q.work <- job:
		}
	}
}

// worker executes claimed jobs until the work channel closes
func (q *DurableQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for job := range q.work {
		q.process(ctx, job)
	}
}

func (q *DurableQueue) process(ctx context.Context, job *sync.DispatchJob) {
	if err := q.run(ctx, job.Envelope()); err != nil {
		job.MarkFailed(err.Error())
		if job.IsDead() {
			q.logger.Warn("dispatch job moved to dead letter",
				zap.String("job_id", job.ID.String()),
				zap.String("kind", job.Kind),
				zap.Int("attempts", job.Attempts),
				zap.String("last_error", job.LastError),
			)
		}
	} else {
		job.MarkCompleted()
	}

	if err := q.jobs.Update(ctx, job); err != nil {
		q.logger.Error("failed to update dispatch job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}

// cleanupLoop periodically removes old completed jobs
func (q *DurableQueue) cleanupLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-q.config.CleanupRetention)
			deleted, err := q.jobs.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				q.logger.Error("failed to clean up dispatch jobs", zap.Error(err))
				continue
			}
			if deleted > 0 {
				q.logger.Info("cleaned up completed dispatch jobs",
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff),
				)
			}
		}
	}
}

var _ Queue = (*DurableQueue)(nil)
