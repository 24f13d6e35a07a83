// event/channel.go
package event

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// Channel is an ordered publish/subscribe bus for payloads of type T.
//
// Subscribers are invoked synchronously in subscription order. A
// subscriber that panics is isolated: the remaining subscribers still
// run, and every recovered fault is returned to the publisher as one
// aggregated error.
type Channel[T any] struct {
	mu   sync.Mutex
	subs []subscriber[T]
}

type subscriber[T any] struct {
	fn func(T)
	id uintptr
}

func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Subscribe appends fn to the subscriber list. Membership is tested by
// function identity, so subscribing the same function twice keeps a
// single entry. A nil fn is ignored.
func (c *Channel[T]) Subscribe(fn func(T)) {
	if fn == nil {
		return
	}
	id := funcID(fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.id == id {
			return
		}
	}
	c.subs = append(c.subs, subscriber[T]{fn: fn, id: id})
}

// Unsubscribe removes fn if present. Unsubscribing an unknown function
// is a no-op.
func (c *Channel[T]) Unsubscribe(fn func(T)) {
	if fn == nil {
		return
	}
	id := funcID(fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// UnsubscribeAll clears every subscriber. Owners call this on their
// teardown path so destroyed consumers are not kept reachable through
// the channel.
func (c *Channel[T]) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = nil
}

// Publish delivers v to every current subscriber, in subscription
// order, and returns after the last one has run. The subscriber list is
// snapshotted first, so a callback may subscribe or unsubscribe without
// affecting this delivery.
func (c *Channel[T]) Publish(v T) error {
	c.mu.Lock()
	snapshot := make([]subscriber[T], len(c.subs))
	copy(snapshot, c.subs)
	c.mu.Unlock()

	var errs error
	for _, s := range snapshot {
		errs = multierr.Append(errs, invoke(s.fn, v))
	}
	return errs
}

// Len returns the current subscriber count.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func invoke[T any](fn func(T), v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	fn(v)
	return nil
}

// funcID returns the code pointer identifying fn. Two references to the
// same declared function share one id. Closures built from the same
// function literal also share an id regardless of captured values, as
// do method values bound to different receivers; callers needing
// per-instance subscriptions should use distinct named functions.
func funcID[T any](fn func(T)) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
