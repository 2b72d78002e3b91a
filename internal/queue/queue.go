// Package queue is qpilot's job dispatch layer: a priority task queue (with
// no capacity limit in the in-process implementation) plus a fixed
// worker-goroutine pool, grounded on
// services/scheduler/main.go's Redis sorted-set priority queue and its
// per-job context.CancelFunc map (SchedulerServer.workerCancel). The
// in-process implementation and the Redis-backed one satisfy the same
// Queue interface, so the broker is swappable.
package queue

import (
	"context"

	"github.com/perclft/qpilot/internal/domain"
)

// Handler runs one job to completion (or to a terminal error). The queue
// calls it once per dequeued job, on a worker goroutine, with a context
// that is canceled if the job is canceled mid-run.
type Handler func(ctx context.Context, job *domain.Job)

// Priority mirrors services/scheduler/main.go's JobPriority, higher runs
// first.
type Priority int

const (
	PriorityLow      Priority = 0
	PriorityNormal   Priority = 1
	PriorityHigh     Priority = 2
	PriorityRealtime Priority = 3
)

// Queue is the broker-agnostic contract the orchestrator drives.
type Queue interface {
	// Enqueue schedules job for execution at priority and returns
	// immediately; it does not block on the job completing.
	Enqueue(ctx context.Context, job *domain.Job, priority Priority) error

	// Cancel revokes jobID. If it is still queued it is popped without
	// ever running (returns true, queued=true). If it is currently
	// running, its context is canceled so the active pilot call can
	// observe ctx.Done() (returns true, queued=false). If neither, it
	// returns false (already finished, or unknown to this queue).
	Cancel(ctx context.Context, jobID string) (found bool, stillQueued bool, err error)

	// Position reports jobID's 1-indexed rank in the pending queue, or 0
	// if it is not queued (running, finished, or unknown).
	Position(ctx context.Context, jobID string) (int, error)

	// Depth reports the number of jobs currently queued (not counting
	// jobs already dispatched to a worker).
	Depth(ctx context.Context) (int, error)

	// Start launches the worker pool that pops jobs and calls handler.
	// It returns immediately; workers run until ctx is canceled.
	Start(ctx context.Context, handler Handler)

	// Close stops accepting new work and waits for the worker goroutines
	// to return. It does not cancel in-flight jobs itself; they observe
	// cancellation when the context given to Start, or Cancel, cancels them.
	Close() error
}
