// Package workerpool runs gateway work (commands and reaction events) on a
// bounded set of goroutines so a burst of events cannot grow goroutines or
// store connections without limit.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when submitting to a pool that has been stopped.
var ErrStopped = errors.New("worker pool stopped")

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("worker pool queue full")

// Task is a unit of work. ID is only used for logging.
type Task struct {
	ID      string
	Fn      func(context.Context) error
	Context context.Context
}

// Config holds worker pool configuration.
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *slog.Logger
}

// Pool manages a bounded pool of goroutines for executing tasks.
type Pool struct {
	name       string
	maxWorkers int
	queueSize  int
	taskQueue  chan Task
	logger     *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}

	active    atomic.Int32
	total     atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a pool and starts its workers.
func New(cfg Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pool{
		name:       cfg.Name,
		maxWorkers: cfg.MaxWorkers,
		queueSize:  cfg.QueueSize,
		taskQueue:  make(chan Task, cfg.QueueSize),
		logger:     cfg.Logger.With("pool", cfg.Name),
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("worker pool started", "max_workers", p.maxWorkers, "queue_size", p.queueSize)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case task := <-p.taskQueue:
			p.execute(id, task)
		}
	}
}

func (p *Pool) execute(workerID int, task Task) {
	p.active.Add(1)
	defer p.active.Add(-1)

	start := time.Now()
	err := p.safeExecute(task)
	duration := time.Since(start)

	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("task failed",
			"worker_id", workerID, "task_id", task.ID, "duration", duration, "err", err)
		return
	}
	p.completed.Add(1)
	p.logger.Debug("task completed", "worker_id", workerID, "task_id", task.ID, "duration", duration)
}

func (p *Pool) safeExecute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("task panic recovered", "task_id", task.ID, "panic", r)
		}
	}()

	if task.Context == nil {
		task.Context = context.Background()
	}
	return task.Fn(task.Context)
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	select {
	case <-p.stopChan:
		p.rejected.Add(1)
		return fmt.Errorf("%s: %w", p.name, ErrStopped)
	default:
	}

	select {
	case p.taskQueue <- task:
		p.total.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return fmt.Errorf("%s: %w", p.name, ErrQueueFull)
	}
}

// SubmitWithContext blocks until the task is queued, the pool stops, or ctx
// is done.
func (p *Pool) SubmitWithContext(ctx context.Context, task Task) error {
	select {
	case <-p.stopChan:
		p.rejected.Add(1)
		return fmt.Errorf("%s: %w", p.name, ErrStopped)
	default:
	}

	select {
	case <-p.stopChan:
		p.rejected.Add(1)
		return fmt.Errorf("%s: %w", p.name, ErrStopped)
	case <-ctx.Done():
		p.rejected.Add(1)
		return ctx.Err()
	case p.taskQueue <- task:
		p.total.Add(1)
		return nil
	}
}

// SubmitWithin is SubmitWithContext bounded by wait.
func (p *Pool) SubmitWithin(wait time.Duration, task Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	return p.SubmitWithContext(ctx, task)
}

// Stop closes the pool and waits up to timeout for in-flight tasks. Tasks
// still queued are dropped.
func (p *Pool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")
		close(p.stopChan)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("worker pool stopped")
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool %q stop timeout after %v", p.name, timeout)
			p.logger.Warn("worker pool stop timeout")
		}
	})
	return err
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Name:           p.name,
		MaxWorkers:     p.maxWorkers,
		ActiveWorkers:  int(p.active.Load()),
		QueueSize:      p.queueSize,
		QueuedTasks:    len(p.taskQueue),
		TotalTasks:     p.total.Load(),
		CompletedTasks: p.completed.Load(),
		FailedTasks:    p.failed.Load(),
		RejectedTasks:  p.rejected.Load(),
	}
}

// Stats represents worker pool statistics.
type Stats struct {
	Name           string
	MaxWorkers     int
	ActiveWorkers  int
	QueueSize      int
	QueuedTasks    int
	TotalTasks     uint64
	CompletedTasks uint64
	FailedTasks    uint64
	RejectedTasks  uint64
}

// QueueUtilization returns the queue utilization as a percentage.
func (s Stats) QueueUtilization() float64 {
	if s.QueueSize == 0 {
		return 0
	}
	return float64(s.QueuedTasks) / float64(s.QueueSize) * 100.0
}
