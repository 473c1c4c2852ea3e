//go:build debug

package channel

// NewPair creates a channel for infrastructure code.
// In debug builds the capacity is forced to 1 (ignores size).
func NewPair[T any](size int) (*Sender[T], *Receiver[T]) {
	return New[T](WithCapacity(1))
}
