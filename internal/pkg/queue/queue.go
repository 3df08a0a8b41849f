package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"taskboard/internal/domain/errors"
)

// Job is a unit of background work.
type Job func(ctx context.Context) error

type ErrorHandler func(err error)

// Queue is a bounded in-memory job queue drained by a fixed worker pool.
type Queue struct {
	logger       *slog.Logger
	workers      int
	jobs         chan Job
	errorHandler ErrorHandler

	wg sync.WaitGroup
	// mu orders sends on jobs against close(jobs).
	mu     sync.RWMutex
	closed atomic.Bool

	enqueued  atomic.Int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// Stats is a point-in-time copy of the queue counters.
type Stats struct {
	Enqueued  int64
	Processed int64
	Succeeded int64
	Failed    int64
	Dropped   int64
	Panics    int64
}

func New(logger *slog.Logger, workers, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		jobs:    make(chan Job, capacity),
	}
}

func (q *Queue) SetErrorHandler(handler ErrorHandler) {
	q.errorHandler = handler
}

// Start runs the workers until ctx is cancelled or Shutdown is called.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.execute(ctx, job, id)
		}
	}
}

func (q *Queue) execute(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			q.logger.Error("job panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	err := job(ctx)
	q.processed.Add(1)
	if err != nil {
		q.failed.Add(1)
		q.logger.Warn("job failed", slog.Int("worker_id", workerID), slog.String("error", err.Error()))
		if q.errorHandler != nil {
			q.errorHandler(err)
		}
		return
	}
	q.succeeded.Add(1)
}

// Enqueue never blocks. It returns ErrQueueFull or ErrQueueClosed when the job is rejected.
func (q *Queue) Enqueue(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		return errors.ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.enqueued.Add(1)
		return nil
	default:
		q.dropped.Add(1)
		q.logger.Warn("queue full, drop job", slog.Int("capacity", cap(q.jobs)))
		return errors.ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for the workers to drain the queue.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed.CompareAndSwap(false, true) {
		q.mu.Unlock()
		return errors.ErrQueueClosed
	}
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue drained")
		return nil
	case <-time.After(timeout):
		q.logger.Error("queue shutdown timeout", slog.Duration("timeout", timeout))
		return fmt.Errorf("queue shutdown timeout after %s", timeout)
	}
}

func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Panics:    q.panics.Load(),
	}
}

func (q *Queue) Len() int { return len(q.jobs) }
