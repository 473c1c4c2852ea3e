package channel

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"
)

// Receiver is a consumer handle. Any number of receivers may take from the
// same channel; each item is delivered to exactly one of them.
type Receiver[T any] struct {
	m      *mailbox[T]
	closed atomic.Bool
}

// Recv removes and returns the front item, blocking while the channel is
// empty and open. It returns ErrClosed once the channel is closed and drained.
func (r *Receiver[T]) Recv() (T, error) {
	return r.RecvContext(context.Background())
}

// RecvContext is Recv that stops waiting when ctx ends, returning ctx.Err().
// A buffered item is always preferred over a finished context.
func (r *Receiver[T]) RecvContext(ctx context.Context) (T, error) {
	if r.closed.Load() {
		var zero T
		return zero, ErrReceiverClosed
	}
	return r.m.recv(ctx, true)
}

// RecvTimeout is Recv bounded by d. It returns ErrTimeout if nothing arrived.
func (r *Receiver[T]) RecvTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	v, err := r.RecvContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return v, ErrTimeout
	}
	return v, err
}

// TryRecv returns the front item without blocking, or ErrEmpty.
func (r *Receiver[T]) TryRecv() (T, error) {
	if r.closed.Load() {
		var zero T
		return zero, ErrReceiverClosed
	}
	return r.m.recv(context.Background(), false)
}

// All returns an iterator over received items. It stops when the channel is
// closed and drained, or when the handle is closed.
func (r *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := r.Recv()
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Clone returns a new receiver for the same channel.
// Cloning a closed handle yields a closed handle.
func (r *Receiver[T]) Clone() *Receiver[T] {
	c := &Receiver[T]{m: r.m}
	if r.closed.Load() {
		c.closed.Store(true)
		return c
	}
	r.m.addReceiver()
	return c
}

// Close releases the handle. Closing the last receiver makes senders blocked
// on a full bounded channel return ErrDisconnected. Close is idempotent.
func (r *Receiver[T]) Close() {
	if r.closed.CompareAndSwap(false, true) {
		r.m.dropReceiver()
	}
}

// Len returns the number of buffered items.
func (r *Receiver[T]) Len() int {
	return r.m.len()
}

// State reports whether the channel is still open.
func (r *Receiver[T]) State() State {
	return r.m.state()
}
