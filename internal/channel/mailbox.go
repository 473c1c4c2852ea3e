package channel

import (
	"context"
	"sync"

	"github.com/OCAP2/handoff/internal/queue"
)

// mailbox is the state shared by every handle of one channel.
type mailbox[T any] struct {
	mu sync.Mutex // protects everything below

	// available is signalled when an item is appended and broadcast when the
	// mailbox closes. Only receivers wait on it.
	available *sync.Cond
	// space is signalled when a bounded mailbox drops below capacity and
	// broadcast when the last receiver or sender goes away. Only senders wait on it.
	space *sync.Cond

	buf       *queue.FIFO[T]
	capacity  int // 0 means unbounded
	senders   int
	receivers int
	closed    bool
}

func newMailbox[T any](capacity int) *mailbox[T] {
	m := &mailbox[T]{
		buf:       queue.New[T](),
		capacity:  capacity,
		senders:   1,
		receivers: 1,
	}
	m.available = sync.NewCond(&m.mu)
	m.space = sync.NewCond(&m.mu)
	return m
}

// send appends v. On a bounded mailbox it waits for space when block is set,
// giving up when ctx ends.
func (m *mailbox[T]) send(ctx context.Context, v T, block bool) error {
	if m.capacity > 0 && block && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, m.wakeSenders)
		defer stop()
	}

	m.mu.Lock()
	for {
		// only reachable when a handle races its own Close
		if m.closed {
			m.mu.Unlock()
			return ErrSenderClosed
		}
		if m.capacity == 0 || m.buf.Len() < m.capacity {
			break
		}
		if m.receivers == 0 {
			m.mu.Unlock()
			return ErrDisconnected
		}
		if !block {
			m.mu.Unlock()
			return ErrFull
		}
		if err := ctx.Err(); err != nil {
			m.mu.Unlock()
			return err
		}
		m.space.Wait()
	}
	m.buf.Push(v)
	m.mu.Unlock()

	m.available.Signal()
	return nil
}

// recv removes the front item. When block is set it waits until an item is
// buffered, the mailbox closes, or ctx ends.
func (m *mailbox[T]) recv(ctx context.Context, block bool) (T, error) {
	if block && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, m.wakeReceivers)
		defer stop()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	for m.buf.Empty() {
		if m.closed {
			return zero, ErrClosed
		}
		if !block {
			return zero, ErrEmpty
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		m.available.Wait()
	}
	v, _ := m.buf.Pop()
	if m.capacity > 0 {
		m.space.Signal()
	}
	return v, nil
}

// addSender registers a new live sender. It fails once the mailbox is closed.
func (m *mailbox[T]) addSender() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.senders++
	return true
}

// dropSender releases a sender; the last one closes the mailbox.
func (m *mailbox[T]) dropSender() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders--
	if m.senders == 0 {
		m.closed = true
		m.available.Broadcast()
		m.space.Broadcast()
	}
}

func (m *mailbox[T]) addReceiver() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receivers++
}

// dropReceiver releases a receiver; blocked senders are woken when none remain.
func (m *mailbox[T]) dropReceiver() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receivers--
	if m.receivers == 0 {
		m.space.Broadcast()
	}
}

func (m *mailbox[T]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Len()
}

func (m *mailbox[T]) state() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return StateClosed
	}
	return StateOpen
}

// wakeReceivers is run when a receive context ends. Taking the lock orders
// the broadcast after the waiter's own ctx check.
func (m *mailbox[T]) wakeReceivers() {
	m.mu.Lock()
	m.available.Broadcast()
	m.mu.Unlock()
}

func (m *mailbox[T]) wakeSenders() {
	m.mu.Lock()
	m.space.Broadcast()
	m.mu.Unlock()
}
