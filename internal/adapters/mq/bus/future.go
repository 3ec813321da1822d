package bus

import (
	"context"
	"sync"
)

// Future resolves at most once with the first matching event. A future whose
// subscription is disposed before a match (client destroyed, Cancel, or a
// cancelled Wait) never resolves.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	val    T
	cancel func()
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: func() {}}
}

func (f *Future[T]) resolve(v T) bool {
	resolved := false
	f.once.Do(func() {
		f.val = v
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Value returns the resolved value without blocking.
func (f *Future[T]) Value() (T, bool) {
	select {
	case <-f.done:
		return f.val, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the future resolves or ctx ends. On ctx end the
// underlying subscription is disposed and ctx.Err() returned.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, nil
	case <-ctx.Done():
		// resolution may have raced with cancellation
		if v, ok := f.Value(); ok {
			return v, nil
		}
		f.Cancel()
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel disposes the subscription backing the future.
func (f *Future[T]) Cancel() { f.cancel() }
