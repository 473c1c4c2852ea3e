// Package queue provides the FIFO item store used by channel mailboxes.
package queue

// minCapacity is the smallest backing array a FIFO allocates once it holds an item.
const minCapacity = 16

// FIFO is a generic first-in-first-out ring buffer.
//
// FIFO is not safe for concurrent use; the owner must serialise access
// (the channel mailbox holds its lock around every call).
type FIFO[T any] struct {
	items []T
	head  int
	count int
}

// New creates a new empty FIFO.
func New[T any]() *FIFO[T] {
	return &FIFO[T]{}
}

// Push appends items to the back of the queue.
func (q *FIFO[T]) Push(items ...T) {
	for _, item := range items {
		if q.count == len(q.items) {
			q.grow()
		}
		q.items[(q.head+q.count)%len(q.items)] = item
		q.count++
	}
}

// Pop removes and returns the front item. The second result is false if the queue is empty.
func (q *FIFO[T]) Pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	item := q.items[q.head]
	// release the reference so popped values can be collected
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	if q.count == 0 {
		q.head = 0
	}
	return item, true
}

// Empty returns true if the queue has no items.
func (q *FIFO[T]) Empty() bool {
	return q.count == 0
}

// Len returns the number of items in the queue.
func (q *FIFO[T]) Len() int {
	return q.count
}

func (q *FIFO[T]) grow() {
	size := len(q.items) * 2
	if size < minCapacity {
		size = minCapacity
	}
	items := make([]T, size)
	for i := 0; i < q.count; i++ {
		items[i] = q.items[(q.head+i)%len(q.items)]
	}
	q.items = items
	q.head = 0
}
