package queue

import (
	"context"
	gosync "sync"

	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// LightQueue is the low-overhead backend used under light load: a plain
// in-memory FIFO with no retry metadata and no persistence. Items pending
// here do not survive a process restart.
type LightQueue struct {
	mu     gosync.Mutex
	items  []sync.DispatchEnvelope
	logger *zap.Logger
}

// NewLightQueue creates an empty light queue
func NewLightQueue(logger *zap.Logger) *LightQueue {
	return &LightQueue{
		items:  make([]sync.DispatchEnvelope, 0, 64),
		logger: logger,
	}
}

// Enqueue pushes an envelope onto the FIFO
func (q *LightQueue) Enqueue(_ context.Context, env sync.DispatchEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, env)
	return nil
}

// Len returns the number of pending envelopes
func (q *LightQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain pops and runs pending envelopes until the queue is empty or the
// context is cancelled. A failing envelope is retried once immediately and
// then dropped with a log line; durable retry semantics belong to the
// durable backend. Returns the number of envelopes processed successfully.
func (q *LightQueue) Drain(ctx context.Context, run Executor) int {
	processed := 0
	for {
		if ctx.Err() != nil {
			return processed
		}

		env, ok := q.pop()
		if !ok {
			return processed
		}

		err := run(ctx, env)
		if err != nil {
			err = run(ctx, env)
		}
		if err != nil {
			q.logger.Error("dropping envelope after retry",
				zap.String("kind", env.Kind),
				zap.String("user_id", env.UserID.String()),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
}

func (q *LightQueue) pop() (sync.DispatchEnvelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return sync.DispatchEnvelope{}, false
	}
	env := q.items[0]
	q.items = q.items[1:]
	return env, true
}

var _ Queue = (*LightQueue)(nil)
