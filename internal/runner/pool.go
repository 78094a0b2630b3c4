package runner

import (
	"context"
	"fmt"
	"sync"

	"blobcache/internal/core/logger"
)

const (
	poolQueueSize = 256
	poolWorkers   = 4
)

// PoolOption is an option for a pool.
type PoolOption func(*Pool)

// WithPoolLogger is an option for a pool to set the logger.
func WithPoolLogger(logger *logger.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithPoolWorkers is an option for a pool to set the number of workers.
func WithPoolWorkers(workers int) PoolOption {
	return func(p *Pool) {
		p.workers = workers
	}
}

// Pool runs transfer jobs on a fixed set of workers.
type Pool struct {
	name      string
	workers   int
	wg        sync.WaitGroup
	logger    *logger.Logger
	jobs      chan *Job
	completed chan *Job
	done      <-chan struct{}
}

// NewPool creates a job pool and starts its workers. The pool stops when
// ctx is cancelled.
func NewPool(ctx context.Context, name string, opts ...PoolOption) *Pool {
	p := &Pool{
		name:      name,
		workers:   poolWorkers,
		logger:    logger.NewLogger(logger.WithName(name)),
		jobs:      make(chan *Job, poolQueueSize),
		completed: make(chan *Job, poolQueueSize),
		done:      ctx.Done(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
	go func() {
		p.wg.Wait()
		close(p.completed)
	}()
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			p.logger.Debug("running job", "job", job.Name())
			if err := job.Run(ctx); err != nil {
				p.logger.Debug("job failed", "job", job.Name(), "error", err)
			}
			select {
			case p.completed <- job:
			default:
				p.logger.Warn("completed channel full, dropping result",
					"job", job.Name(), "status", job.Tracker().Status())
			}
		}
	}
}

// Submit adds a new job to the pool.
func (p *Pool) Submit(job *Job) error {
	select {
	case <-p.done:
		return fmt.Errorf("pool is closed")
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Wait blocks until a job completes.
func (p *Pool) Wait() (*Job, error) {
	select {
	case job, ok := <-p.completed:
		if !ok {
			return nil, fmt.Errorf("pool is closed")
		}
		return job, nil
	case <-p.done:
		return nil, fmt.Errorf("pool is closed")
	}
}

// Logger returns the logger of the pool.
func (p *Pool) Logger() *logger.Logger {
	return p.logger
}
