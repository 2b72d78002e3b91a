package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"github.com/perclft/qpilot/internal/domain"
)

// InProcess is the default Queue: an in-memory priority heap plus a fixed
// pool of worker goroutines, and a mutex-guarded cancel map mirroring
// SchedulerServer's workerCancel. It has no external dependency, so it is
// what qpilotd runs with when QueueConfig.RedisAddr is empty.
type InProcess struct {
	mu       sync.Mutex
	heap     jobHeap
	seq      int
	positionOf map[string]*queuedJob
	cancelOf map[string]context.CancelFunc
	notify   chan struct{}

	workers int
	closed  bool
	wg      sync.WaitGroup
}

type queuedJob struct {
	job      *domain.Job
	priority Priority
	seq      int
	index    int
}

// jobHeap orders by priority descending, then by insertion order
// ascending (fair within a priority tier), matching the scheduler's
// priority*1e6-timestamp sorted-set scoring.
type jobHeap []*queuedJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *jobHeap) Push(x any) {
	qj := x.(*queuedJob)
	qj.index = len(*h)
	*h = append(*h, qj)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// NewInProcess builds an InProcess queue with workers concurrent workers.
func NewInProcess(workers int) *InProcess {
	if workers < 1 {
		workers = 1
	}
	return &InProcess{
		positionOf: make(map[string]*queuedJob),
		cancelOf:   make(map[string]context.CancelFunc),
		notify:     make(chan struct{}, 1),
		workers:    workers,
	}
}

func (q *InProcess) Enqueue(ctx context.Context, job *domain.Job, priority Priority) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("queue is closed")
	}
	q.seq++
	qj := &queuedJob{job: job, priority: priority, seq: q.seq}
	heap.Push(&q.heap, qj)
	q.positionOf[job.ID] = qj
	q.mu.Unlock()

	q.wake()
	return nil
}

func (q *InProcess) Cancel(ctx context.Context, jobID string) (bool, bool, error) {
	q.mu.Lock()
	if qj, ok := q.positionOf[jobID]; ok {
		heap.Remove(&q.heap, qj.index)
		delete(q.positionOf, jobID)
		q.mu.Unlock()
		return true, true, nil
	}
	cancel, ok := q.cancelOf[jobID]
	q.mu.Unlock()
	if ok {
		cancel()
		return true, false, nil
	}
	return false, false, nil
}

func (q *InProcess) Position(ctx context.Context, jobID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qj, ok := q.positionOf[jobID]
	if !ok {
		return 0, nil
	}
	rank := 1
	for _, other := range q.heap {
		if q.heap.Less(other.index, qj.index) {
			rank++
		}
	}
	return rank, nil
}

func (q *InProcess) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap), nil
}

func (q *InProcess) Start(ctx context.Context, handler Handler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker(ctx, handler)
	}
}

func (q *InProcess) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	close(q.notify)
	q.wg.Wait()
	return nil
}

func (q *InProcess) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *InProcess) runWorker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		qj := q.pop()
		if qj == nil {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-q.notify:
				if !ok {
					return
				}
				continue
			}
		}

		jobCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.cancelOf[qj.job.ID] = cancel
		q.mu.Unlock()

		handler(jobCtx, qj.job)

		q.mu.Lock()
		delete(q.cancelOf, qj.job.ID)
		q.mu.Unlock()
		cancel()
	}
}

func (q *InProcess) pop() *queuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil
	}
	qj := heap.Pop(&q.heap).(*queuedJob)
	delete(q.positionOf, qj.job.ID)
	return qj
}
