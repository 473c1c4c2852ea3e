package channel

import (
	"context"
	"sync/atomic"
)

// Sender is a producer handle. Handles are cheap; use Clone to give each
// producer goroutine its own and Close each one when it is done.
type Sender[T any] struct {
	m      *mailbox[T]
	closed atomic.Bool
}

// Send appends v to the channel. On an unbounded channel Send never blocks.
// On a bounded channel it waits for space, or returns ErrDisconnected if the
// channel is full and every receiver has been closed.
func (s *Sender[T]) Send(v T) error {
	return s.SendContext(context.Background(), v)
}

// SendContext is Send that gives up waiting for space when ctx ends.
// On an unbounded channel it behaves exactly like Send.
func (s *Sender[T]) SendContext(ctx context.Context, v T) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	return s.m.send(ctx, v, true)
}

// TrySend appends v without blocking. It returns ErrFull if a bounded
// channel has no space.
func (s *Sender[T]) TrySend(v T) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	return s.m.send(context.Background(), v, false)
}

// Clone returns a new sender for the same channel. The channel stays open
// until every clone is closed. Cloning a closed handle yields a closed handle.
func (s *Sender[T]) Clone() *Sender[T] {
	c := &Sender[T]{m: s.m}
	if s.closed.Load() || !s.m.addSender() {
		c.closed.Store(true)
	}
	return c
}

// Close releases the handle. Closing the last live sender closes the channel
// and wakes every blocked receiver. Close is idempotent.
func (s *Sender[T]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.m.dropSender()
	}
}

// Len returns the number of buffered items.
func (s *Sender[T]) Len() int {
	return s.m.len()
}

// Cap returns the channel capacity, 0 for unbounded.
func (s *Sender[T]) Cap() int {
	return s.m.capacity
}

// State reports whether the channel is still open.
func (s *Sender[T]) State() State {
	return s.m.state()
}
