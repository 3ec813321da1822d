// Package worker drains a queue on a single goroutine, so jobs are handled
// strictly one after another in enqueue order.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/xianxia/pkg/logger"
)

// Queue defines how workers receive jobs.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Processor handles one job. An error is logged and the worker moves on.
type Processor[T any] interface {
	Process(ctx context.Context, job T) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[T any] func(ctx context.Context, job T) error

// Process calls f.
func (f ProcessorFunc[T]) Process(ctx context.Context, job T) error { return f(ctx, job) }

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for one queue.
type InMemoryWorker[T any] struct {
	queue     Queue[T]
	processor Processor[T]
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](q Queue[T], p Processor[T], opts ...Option) *InMemoryWorker[T] {
	o := options{name: "worker", logger: logger.Get()}
	for _, opt := range opts {
		opt(&o)
	}

	return &InMemoryWorker[T]{
		queue:     q,
		processor: p,
		name:      o.name,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    o.logger.Named(o.name),
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processor.Process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker. Calling it again returns ErrStopped.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	first := false
	w.shutdownOnce.Do(func() {
		close(w.shutdown)
		first = true
	})
	if !first {
		return ErrStopped
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker[T]) Done() <-chan struct{} { return w.done }
