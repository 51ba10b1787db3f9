package queue

import (
	"context"

	"github.com/sssync/backend/internal/domain/sync"
)

// Queue is the strategy interface behind the adaptive dispatcher. Both
// backends accept envelopes; how (and whether) they survive a restart is the
// backend's concern.
type Queue interface {
	Enqueue(ctx context.Context, env sync.DispatchEnvelope) error
}

// Executor runs one unit of dispatch work. Queue workers call it; the
// wiring layer supplies an implementation that fans out to the platform
// adapters and the backfill executor by envelope kind.
type Executor func(ctx context.Context, env sync.DispatchEnvelope) error
