// Package worker runs detached background tasks on a fixed set of
// goroutines fed by a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("worker: queue is full")
	ErrStopped   = errors.New("worker: pool is stopped")
)

// Task is a unit of background work. The context carries the pool's task
// timeout and is canceled if the pool is stopped with a deadline.
type Task func(ctx context.Context)

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Pool executes Tasks on Config.Workers goroutines.
type Pool struct {
	config Config
	logger *slog.Logger

	tasks  chan namedTask
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type namedTask struct {
	name string
	run  Task
}

func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		config: cfg,
		logger: logger,
		tasks:  make(chan namedTask, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool",
			slog.Int("workers", p.config.Workers),
			slog.Int("queueSize", p.config.QueueSize),
		)
		for range p.config.Workers {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Submit queues task without blocking. It returns ErrQueueFull when every
// queue slot is taken and ErrStopped after Stop has been called.
func (p *Pool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.tasks <- namedTask{name: name, run: task}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued and running ones to finish.
// If ctx expires first, running tasks see their context canceled and Stop
// returns ctx's error once they have returned.
func (p *Pool) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down worker pool")

		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			p.cancel()
			<-done
			err = ctx.Err()
		}
		p.cancel()
	})
	return err
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for t := range p.tasks {
		p.run(t)
	}
}

// run executes a single task; a panicking task is logged and does not take
// the worker down.
func (p *Pool) run(t namedTask) {
	ctx, cancel := p.taskContext()
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				slog.String("task", t.name),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			return
		}
		p.logger.Debug("background task finished",
			slog.String("task", t.name),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	t.run(ctx)
}

func (p *Pool) taskContext() (context.Context, context.CancelFunc) {
	if p.config.TaskTimeout > 0 {
		return context.WithTimeout(p.ctx, p.config.TaskTimeout)
	}
	return context.WithCancel(p.ctx)
}
