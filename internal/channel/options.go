package channel

// Option configures a channel created by New.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity bounds the mailbox to n buffered items. Send blocks while the
// mailbox is full. Zero or negative n leaves the channel unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
