package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/xianxia/internal/domain/event"
)

// Client is one subsystem's handle on the bus. It remembers every
// subscription made through it so Destroy can release them together.
type Client struct {
	bus *Bus

	mu        sync.Mutex
	subs      map[*subscription]struct{}
	destroyed bool
}

// NewClient creates a client bound to b.
func (b *Bus) NewClient() *Client {
	return &Client{bus: b, subs: make(map[*subscription]struct{})}
}

// Publish forwards to the bus. Destroyed clients may still publish.
func (c *Client) Publish(e event.Event) { c.bus.Publish(e) }

// Subscribe registers h through the client. On a destroyed client it
// registers nothing and returns a no-op disposer.
func (c *Client) Subscribe(h Handler, kinds ...event.Kind) Disposer {
	s := c.bus.newSubscription(h, kinds)
	if !c.track(s) {
		return func() {}
	}
	return s.dispose
}

// Once arms a single-fire subscription for the next event of kind.
// Arm it before publishing whatever triggers the reply.
func (c *Client) Once(kind event.Kind) *Future[event.Event] {
	return onceWhere(c, []event.Kind{kind}, func(e event.Event) (event.Event, bool) { return e, true })
}

// Destroy disposes every subscription made through the client. Futures that
// have not resolved yet never will.
func (c *Client) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	subs := make([]*subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.dispose()
	}
}

// Destroyed reports whether Destroy was called.
func (c *Client) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *Client) track(s *subscription) bool {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return false
	}
	c.subs[s] = struct{}{}
	s.onClose = c.forget
	c.mu.Unlock()
	c.bus.add(s)
	return true
}

func (c *Client) forget(s *subscription) {
	c.mu.Lock()
	delete(c.subs, s)
	c.mu.Unlock()
}

func onceWhere[T any](c *Client, kinds []event.Kind, match func(event.Event) (T, bool)) *Future[T] {
	f := newFuture[T]()
	var s *subscription
	s = c.bus.newSubscription(func(e event.Event) {
		v, ok := match(e)
		if ok && f.resolve(v) {
			s.dispose()
		}
	}, kinds)
	f.cancel = s.dispose
	c.track(s)
	return f
}

// Once is the typed form of Client.Once.
func Once[T event.Event](c *Client) *Future[T] {
	return OnceWhere(c, func(T) bool { return true })
}

// OnceWhere resolves with the next T for which pred holds.
func OnceWhere[T event.Event](c *Client, pred func(T) bool) *Future[T] {
	var zero T
	return onceWhere(c, []event.Kind{zero.Kind()}, func(e event.Event) (T, bool) {
		t, ok := e.(T)
		if !ok || !pred(t) {
			return zero, false
		}
		return t, true
	})
}

// On subscribes a typed handler to every T.
func On[T event.Event](c *Client, h func(T)) Disposer {
	var zero T
	return c.Subscribe(func(e event.Event) {
		if t, ok := e.(T); ok {
			h(t)
		}
	}, zero.Kind())
}

// Request publishes req and waits for the first Resp accepted by match. The
// reply subscription is armed before publishing so a synchronous responder
// cannot be missed.
func Request[Resp event.Event](ctx context.Context, c *Client, req event.Event, match func(Resp) bool) (Resp, error) {
	if c.Destroyed() {
		var zero Resp
		return zero, ErrDestroyed
	}
	f := OnceWhere(c, match)
	c.Publish(req)
	resp, err := f.Wait(ctx)
	if err != nil {
		return resp, fmt.Errorf("request %s: %w", req.Kind(), err)
	}
	return resp, nil
}
