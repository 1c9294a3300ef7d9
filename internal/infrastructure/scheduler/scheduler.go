package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of blocking work offloaded from a request handler
type Job = func(ctx context.Context) error

// PoolConfig holds worker pool configuration
type PoolConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultPoolConfig returns default pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    10,
		QueueSize:  100,
		JobTimeout: time.Minute,
	}
}

type task struct {
	ctx  context.Context
	fn   Job
	done chan error
}

// WorkerPool bounds concurrent CPU-heavy or blocking work such as document
// rendering and uploads. Submit blocks until the job finishes, so callers
// keep a plain sequential flow.
type WorkerPool struct {
	config PoolConfig
	logger *zap.Logger

	tasks     chan *task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(config PoolConfig, logger *zap.Logger) *WorkerPool {
	defaults := DefaultPoolConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		config: config,
		logger: logger,
	}
}

// Start launches the workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	p.isRunning = true
	p.tasks = make(chan *task, p.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, p.tasks, i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to drain
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Worker pool stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues fn and waits for its result. It fails fast with
// ErrJobQueueFull when every worker is busy and the queue is full.
func (p *WorkerPool) Submit(ctx context.Context, fn Job) error {
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if !p.isRunning {
		p.mu.RUnlock()
		return ErrPoolNotRunning
	}
	select {
	case p.tasks <- t:
	default:
		p.mu.RUnlock()
		return ErrJobQueueFull
	}
	p.mu.RUnlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run submits fn to the pool and returns its value
func Run[T any](ctx context.Context, p *WorkerPool, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Submit(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (p *WorkerPool) worker(ctx context.Context, tasks <-chan *task, workerID int) {
	defer p.wg.Done()
	for t := range tasks {
		t.done <- p.execute(ctx, t, workerID)
	}
}

func (p *WorkerPool) execute(poolCtx context.Context, t *task, workerID int) (err error) {
	if t.ctx.Err() != nil {
		return t.ctx.Err()
	}

	jobCtx, cancel := context.WithTimeout(t.ctx, p.config.JobTimeout)
	defer cancel()
	stop := context.AfterFunc(poolCtx, cancel)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked",
				zap.Int("worker_id", workerID),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()

	return t.fn(jobCtx)
}
