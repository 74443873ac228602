package jobs

import (
	"context"
	"log/slog"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Task is a unit of background work executed on the pool.
type Task struct {
	JobID string
	Run   func(ctx context.Context)
}

// Pool runs submitted tasks on a fixed set of workers over a bounded queue.
// Submit never blocks the caller: when the queue is full the task is
// rejected so the HTTP layer can report back-pressure instead of hanging.
type Pool struct {
	workers int
	queue   chan Task
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool builds a pool with the given worker count and queue depth.
func NewPool(workers, depth int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		workers: workers,
		queue:   make(chan Task, depth),
		logger:  logger,
	}
}

// Start launches the worker goroutines. Calling Start on a running pool is
// a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(runCtx, i)
	}
	p.logger.Info("worker pool started",
		logging.Int("workers", p.workers),
		logging.Int("queue_depth", cap(p.queue)))
}

// Submit enqueues a task without blocking. A full queue is reported as
// ErrQueueFull.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return services.Wrap(services.ErrQueueFull, "jobs", "submit", "worker pool is not running", nil)
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return services.Wrap(services.ErrQueueFull, "jobs", "submit", "merge queue is full", nil)
	}
}

// Stop cancels the run context and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			taskCtx := services.WithJobID(ctx, task.JobID)
			p.logger.Debug("task started",
				logging.Int("worker", id),
				logging.String(logging.FieldJobID, task.JobID))
			task.Run(taskCtx)
			p.logger.Debug("task finished",
				logging.Int("worker", id),
				logging.String(logging.FieldJobID, task.JobID))
		}
	}
}
