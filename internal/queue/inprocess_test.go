package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/queue"
)

func TestInProcessRunsEnqueuedJob(t *testing.T) {
	q := queue.NewInProcess(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	ran := make([]string, 0, 1)
	done := make(chan struct{})

	q.Start(ctx, func(_ context.Context, job *domain.Job) {
		mu.Lock()
		ran = append(ran, job.ID)
		mu.Unlock()
		close(done)
	})

	if err := q.Enqueue(ctx, &domain.Job{ID: "job-1"}, queue.PriorityNormal); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != "job-1" {
		t.Errorf("ran = %v, want [job-1]", ran)
	}
}

func TestInProcessHigherPriorityRunsFirst(t *testing.T) {
	q := queue.NewInProcess(1)

	if err := q.Enqueue(context.Background(), &domain.Job{ID: "low"}, queue.PriorityLow); err != nil {
		t.Fatalf("Enqueue low: %v", err)
	}
	if err := q.Enqueue(context.Background(), &domain.Job{ID: "high"}, queue.PriorityHigh); err != nil {
		t.Fatalf("Enqueue high: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var order []string
	allDone := make(chan struct{})

	q.Start(ctx, func(_ context.Context, job *domain.Job) {
		mu.Lock()
		order = append(order, job.ID)
		n := len(order)
		mu.Unlock()
		if n == 2 {
			close(allDone)
		}
	})

	select {
	case <-allDone:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("order = %v, want [high low]", order)
	}
}

func TestInProcessCancelQueued(t *testing.T) {
	q := queue.NewInProcess(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, &domain.Job{ID: "job-1"}, queue.PriorityNormal); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	found, stillQueued, err := q.Cancel(ctx, "job-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !found || !stillQueued {
		t.Errorf("Cancel = (%v, %v), want (true, true)", found, stillQueued)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 0 {
		t.Errorf("Depth = %d, want 0", depth)
	}
}

func TestInProcessCancelRunning(t *testing.T) {
	q := queue.NewInProcess(1)
	ctx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	started := make(chan struct{})
	canceled := make(chan struct{})

	q.Start(ctx, func(jobCtx context.Context, job *domain.Job) {
		close(started)
		<-jobCtx.Done()
		close(canceled)
	})

	if err := q.Enqueue(ctx, &domain.Job{ID: "job-1"}, queue.PriorityNormal); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never started")
	}

	found, stillQueued, err := q.Cancel(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !found || stillQueued {
		t.Errorf("Cancel = (%v, %v), want (true, false)", found, stillQueued)
	}

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context never canceled")
	}
}

func TestInProcessCancelUnknownJob(t *testing.T) {
	q := queue.NewInProcess(1)
	found, stillQueued, err := q.Cancel(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if found || stillQueued {
		t.Errorf("Cancel = (%v, %v), want (false, false)", found, stillQueued)
	}
}
