// Package bus implements the in-process coordination bus every battle
// subsystem talks through.
//
// Delivery is synchronous and globally serialized: the goroutine that finds
// the bus idle delivers its event to every current subscriber, in
// subscription order, and then drains whatever was published meanwhile
// (re-entrantly from a handler or from another goroutine) in FIFO order.
// No event from a later publish is observed before an earlier delivery
// completes. There is no buffering for late subscribers and no replay.
//
// Handlers run on the dispatching goroutine and must not block.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// Handler receives delivered events.
type Handler func(event.Event)

// Disposer cancels a subscription. Calling it more than once is a no-op.
type Disposer func()

type subscription struct {
	bus     *Bus
	kinds   map[event.Kind]struct{}
	handler Handler
	active  atomic.Bool
	onClose func(*subscription)
}

func (s *subscription) matches(k event.Kind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

func (s *subscription) dispose() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
	if s.onClose != nil {
		s.onClose(s)
	}
}

// Bus fans events out to subscribers.
type Bus struct {
	mu          sync.Mutex
	subs        []*subscription
	pending     []event.Event
	dispatching bool

	logger logger.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets a custom logger for the bus.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{logger: logger.Get().Named("bus")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers e to all current subscribers. When the bus is idle the
// delivery happens before Publish returns; otherwise e is queued behind the
// in-flight delivery and handed over to the goroutine performing it.
func (b *Bus) Publish(e event.Event) {
	metrics.RecordBusPublish(string(e.Kind()))

	b.mu.Lock()
	b.pending = append(b.pending, e)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending[0] = nil
		b.pending = b.pending[1:]
		targets := append([]*subscription(nil), b.subs...)
		b.mu.Unlock()

		for _, s := range targets {
			// a subscriber disposed by an earlier handler of this delivery is skipped
			if s.active.Load() && s.matches(next.Kind()) {
				b.call(s, next)
			}
		}

		b.mu.Lock()
	}
	b.dispatching = false
	b.mu.Unlock()
}

func (b *Bus) call(s *subscription, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(context.Background(), "bus handler panicked",
				logger.String("kind", string(e.Kind())),
				logger.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	s.handler(e)
}

// Subscribe registers h for the given kinds, or for every kind when none are
// given. Events already being delivered are not seen by the new subscriber.
func (b *Bus) Subscribe(h Handler, kinds ...event.Kind) Disposer {
	s := b.newSubscription(h, kinds)
	b.add(s)
	return s.dispose
}

func (b *Bus) newSubscription(h Handler, kinds []event.Kind) *subscription {
	s := &subscription{bus: b, handler: h}
	if len(kinds) > 0 {
		s.kinds = make(map[event.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}
	return s
}

func (b *Bus) add(s *subscription) {
	s.active.Store(true)
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	metrics.AddBusSubscribers(1)
}

func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	metrics.AddBusSubscribers(-1)
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
