// Package channel provides a blocking multi-producer/multi-consumer channel
// built from a mutex and a condition variable.
//
// A channel is a shared mailbox referenced by any number of Sender and
// Receiver handles. Senders append to the back of the mailbox, receivers take
// from the front, and a receiver that finds the mailbox empty suspends on the
// condition variable until an item arrives or the channel closes.
//
// The channel closes when its last Sender handle is closed. Buffered items can
// still be drained after that; once the mailbox is empty every receive returns
// ErrClosed.
//
//	tx, rx := channel.New[int]()
//	go func() {
//	    defer tx.Close()
//	    for i := 0; i < 3; i++ {
//	        tx.Send(i)
//	    }
//	}()
//	for v := range rx.All() {
//	    fmt.Println(v)
//	}
package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by receive operations once every sender is closed
	// and the mailbox has been drained.
	ErrClosed = errors.New("channel closed")

	// ErrTimeout is returned by RecvTimeout when no item arrived in time.
	ErrTimeout = errors.New("receive timed out")

	// ErrEmpty is returned by TryRecv when no item is buffered.
	ErrEmpty = errors.New("channel empty")

	// ErrFull is returned by TrySend on a bounded channel at capacity.
	ErrFull = errors.New("channel full")

	// ErrDisconnected is returned when a bounded send cannot make progress
	// because no receiver handle is left.
	ErrDisconnected = errors.New("no receivers left")

	// ErrSenderClosed is returned when sending through a closed handle.
	ErrSenderClosed = errors.New("send on closed sender")

	// ErrReceiverClosed is returned when receiving through a closed handle.
	ErrReceiverClosed = errors.New("receive on closed receiver")
)

// State is the lifecycle state of a mailbox.
type State int

const (
	// StateOpen accepts sends; the buffer may be empty or not.
	StateOpen State = iota
	// StateClosed means every sender handle is closed. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// New creates a channel and returns its first sender and receiver handles.
func New[T any](opts ...Option) (*Sender[T], *Receiver[T]) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	m := newMailbox[T](cfg.capacity)
	return &Sender[T]{m: m}, &Receiver[T]{m: m}
}
