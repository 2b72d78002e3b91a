package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perclft/qpilot/internal/domain"
)

const queueKey = "qpilot:queue:jobs"

func jobKey(id string) string { return "qpilot:job:" + id }

// Redis is the distributed Queue implementation: a sorted-set priority
// queue plus a per-process cancel map, grounded directly on
// services/scheduler/main.go's SchedulerServer (ZAdd/ZPopMax/ZRem/ZRevRank
// scoring by priority then submission time, and workerCancel tracking
// in-flight context.CancelFuncs).
type Redis struct {
	rdb *redis.Client

	mu       sync.Mutex
	cancelOf map[string]context.CancelFunc

	workers int
	wg      sync.WaitGroup
}

// NewRedis builds a Redis-backed queue against addr.
func NewRedis(addr string, workers int) *Redis {
	if workers < 1 {
		workers = 1
	}
	return &Redis{
		rdb:      redis.NewClient(&redis.Options{Addr: addr}),
		cancelOf: make(map[string]context.CancelFunc),
		workers:  workers,
	}
}

func (q *Redis) Enqueue(ctx context.Context, job *domain.Job, priority Priority) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.rdb.Set(ctx, jobKey(job.ID), payload, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}

	score := float64(int64(priority)*1_000_000 - time.Now().Unix())
	if err := q.rdb.ZAdd(ctx, queueKey, redis.Z{Score: score, Member: job.ID}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *Redis) Cancel(ctx context.Context, jobID string) (bool, bool, error) {
	removed, err := q.rdb.ZRem(ctx, queueKey, jobID).Result()
	if err != nil {
		return false, false, fmt.Errorf("failed to remove from queue: %w", err)
	}
	if removed > 0 {
		return true, true, nil
	}

	q.mu.Lock()
	cancel, ok := q.cancelOf[jobID]
	q.mu.Unlock()
	if ok {
		cancel()
		return true, false, nil
	}
	return false, false, nil
}

func (q *Redis) Position(ctx context.Context, jobID string) (int, error) {
	rank, err := q.rdb.ZRevRank(ctx, queueKey, jobID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to rank job: %w", err)
	}
	return int(rank) + 1, nil
}

func (q *Redis) Depth(ctx context.Context) (int, error) {
	n, err := q.rdb.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return int(n), nil
}

func (q *Redis) Start(ctx context.Context, handler Handler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker(ctx, handler)
	}
}

func (q *Redis) Close() error {
	q.wg.Wait()
	return q.rdb.Close()
}

func (q *Redis) runWorker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		popped, err := q.rdb.ZPopMax(ctx, queueKey, 1).Result()
		if err != nil || len(popped) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}

		jobID, _ := popped[0].Member.(string)
		payload, err := q.rdb.Get(ctx, jobKey(jobID)).Bytes()
		if err != nil {
			continue
		}
		var job domain.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			continue
		}

		jobCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.cancelOf[job.ID] = cancel
		q.mu.Unlock()

		handler(jobCtx, &job)

		q.mu.Lock()
		delete(q.cancelOf, job.ID)
		q.mu.Unlock()
		cancel()
	}
}
