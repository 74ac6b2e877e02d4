// Package frames carries frames from a single producer to a single consumer
// through a one-slot mailbox, plus the readiness signal the consumer side
// uses to wake a presenter.
package frames

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned once the producer has closed the channel and no
	// queued item is left.
	ErrClosed = errors.New("frames: channel closed")
	// ErrEmpty is returned by TryReceive when nothing is queued.
	ErrEmpty = errors.New("frames: channel empty")
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotQueued
	slotDelivered
	slotReleasing
)

// Channel is a capacity-one SPSC channel. The slot stays occupied from Send
// until the consumer releases the delivered item, so at most one item is
// between "sent" and "released" at any time.
type Channel[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   T
	state  slotState
	gen    uint64
	closed bool

	onRelease func(T)

	sent     uint64
	released uint64
}

// NewChannel returns an empty channel. onRelease, if not nil, runs for every
// item that is released or drained, before the slot is freed.
func NewChannel[T any](onRelease func(T)) *Channel[T] {
	c := &Channel[T]{onRelease: onRelease}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// wake makes blocked Send/Receive calls re-check their context.
func (c *Channel[T]) wake(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
}

// Send queues v, blocking while the slot holds an undelivered item or a
// delivered item that has not been released.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	stop := c.wake(ctx)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.state != slotEmpty && !c.closed && ctx.Err() == nil {
		c.cond.Wait()
	}
	if c.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.item = v
	c.state = slotQueued
	c.sent++
	c.cond.Broadcast()
	return nil
}

// TryReceive never blocks. It returns ErrEmpty when nothing is queued and
// ErrClosed once the channel is closed and empty.
func (c *Channel[T]) TryReceive() (Delivery[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == slotQueued {
		return c.deliverLocked(), nil
	}
	if c.closed {
		return Delivery[T]{}, ErrClosed
	}
	return Delivery[T]{}, ErrEmpty
}

// Receive blocks until an item is queued, the channel is closed or ctx is
// done. Items queued before Close are still delivered.
func (c *Channel[T]) Receive(ctx context.Context) (Delivery[T], error) {
	stop := c.wake(ctx)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.state != slotQueued && !c.closed && ctx.Err() == nil {
		c.cond.Wait()
	}
	if c.state == slotQueued {
		return c.deliverLocked(), nil
	}
	if c.closed {
		return Delivery[T]{}, ErrClosed
	}
	return Delivery[T]{}, ctx.Err()
}

func (c *Channel[T]) deliverLocked() Delivery[T] {
	var zero T
	v := c.item
	c.item = zero
	c.state = slotDelivered
	c.gen++
	return Delivery[T]{Value: v, ch: c, gen: c.gen}
}

func (c *Channel[T]) release(gen uint64, v T) {
	c.mu.Lock()
	if c.state != slotDelivered || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = slotReleasing
	c.mu.Unlock()

	// The slot stays occupied until the callback has returned the item.
	if c.onRelease != nil {
		c.onRelease(v)
	}

	c.mu.Lock()
	c.state = slotEmpty
	c.released++
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Close marks end of stream. Blocked senders get ErrClosed; a queued item is
// still delivered. Close is idempotent.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Drain removes a queued, undelivered item and releases it. It reports
// whether there was one.
func (c *Channel[T]) Drain() bool {
	c.mu.Lock()
	if c.state != slotQueued {
		c.mu.Unlock()
		return false
	}
	d := c.deliverLocked()
	c.mu.Unlock()

	d.Release()
	return true
}

// Occupied reports whether an item is queued or delivered and unreleased.
func (c *Channel[T]) Occupied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != slotEmpty
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type Stats struct {
	Sent     uint64
	Released uint64
}

func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Sent: c.sent, Released: c.released}
}

// Delivery is a received item. The consumer owns Value until Release.
type Delivery[T any] struct {
	Value T

	ch  *Channel[T]
	gen uint64
}

// Release hands the item back and frees the slot. Calling it more than once
// has no further effect.
func (d Delivery[T]) Release() {
	if d.ch == nil {
		return
	}
	d.ch.release(d.gen, d.Value)
}
