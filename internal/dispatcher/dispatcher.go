package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/handoff/internal/channel"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Event represents an incoming command.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
	workers    int
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Workers sets how many goroutines drain a buffered handler's queue.
// Events of one command are then no longer handled in order.
func Workers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// queue is the mailbox behind one buffered command.
type queue struct {
	tx *channel.Sender[Event]
	rx *channel.Receiver[Event]
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize    metric.Int64ObservableGauge
	processed    metric.Int64Counter
	dropped      metric.Int64Counter
	registration metric.Registration

	// Track queues for gauge callback and shutdown
	mu      sync.RWMutex
	queues  map[string]queue
	workers conc.WaitGroup
	closed  atomic.Bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]queue),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, q := range d.queues {
				o.ObserveInt64(d.queueSize, int64(q.rx.Len()),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{workers: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if d.closed.Load() {
		return nil, ErrDispatcherClosed
	}
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// QueueLen returns the number of events waiting for a buffered command.
func (d *Dispatcher) QueueLen(command string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q, ok := d.queues[command]
	if !ok {
		return 0
	}
	return q.rx.Len()
}

// Close stops accepting events, lets every buffered handler drain its queue
// and waits for the workers to finish.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.mu.RLock()
	for _, q := range d.queues {
		q.tx.Close()
	}
	d.mu.RUnlock()

	d.workers.Wait()

	d.mu.Lock()
	for _, q := range d.queues {
		q.rx.Close()
	}
	d.mu.Unlock()

	if err := d.registration.Unregister(); err != nil {
		d.logger.Error("unregistering queue callback", "error", err)
	}
}

func (d *Dispatcher) withBuffer(command string, cfg *config, h HandlerFunc) HandlerFunc {
	tx, rx := channel.NewPair[Event](cfg.bufferSize)

	d.mu.Lock()
	d.queues[command] = queue{tx: tx, rx: rx}
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	for i := 0; i < cfg.workers; i++ {
		worker := rx.Clone()
		d.workers.Go(func() {
			defer worker.Close()
			for e := range worker.All() {
				if r := panics.Try(func() { h(e) }); r != nil {
					d.logger.Error("handler panicked", "command", command, "error", r.AsError())
				}
				d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			}
		})
	}

	if cfg.blocking {
		return func(e Event) (any, error) {
			if err := tx.Send(e); err != nil {
				return nil, d.enqueueError(command, err)
			}
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		err := tx.TrySend(e)
		if errors.Is(err, channel.ErrFull) {
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
		if err != nil {
			return nil, d.enqueueError(command, err)
		}
		return "queued", nil
	}
}

func (d *Dispatcher) enqueueError(command string, err error) error {
	if errors.Is(err, channel.ErrSenderClosed) {
		return ErrDispatcherClosed
	}
	return fmt.Errorf("enqueue %s: %w", command, err)
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
