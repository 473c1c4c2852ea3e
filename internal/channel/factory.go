//go:build !debug

package channel

// NewPair creates a channel bounded to size items (unbounded if size <= 0).
// In production builds the requested size is honoured.
func NewPair[T any](size int) (*Sender[T], *Receiver[T]) {
	return New[T](WithCapacity(size))
}
