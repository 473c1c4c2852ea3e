// Package soak drives a channel with concurrent producers and consumers and
// checks that every item arrives exactly once and in per-producer order.
package soak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/handoff/internal/channel"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

var (
	// ErrIntegrity is returned when items were lost, duplicated or reordered.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrInvalidConfig is returned for non-positive producer or consumer counts.
	ErrInvalidConfig = errors.New("invalid soak config")
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config describes one soak run.
type Config struct {
	RunID            string // generated when empty
	Producers        int
	ItemsPerProducer int
	Consumers        int
	Capacity         int           // 0 means unbounded
	RecvTimeout      time.Duration // 0 waits forever
	ProgressInterval time.Duration // 0 disables progress logging

	// ViaDispatcher routes items through a dispatcher command queue drained
	// by Consumers workers instead of raw receiver clones.
	ViaDispatcher bool
}

// Item is what producers send: the producer index and a per-producer sequence number.
type Item struct {
	Producer int
	Seq      int
}

// Result summarises a finished run. Sent counts the items actually handed to
// the channel. PerConsumer holds one count per receiver clone; dispatcher runs
// report a single entry since the workers share one queue.
type Result struct {
	RunID       string
	Sent        int
	Received    int
	PerConsumer []int
	Missing     int
	Duplicates  int
	OutOfOrder  int
	Duration    time.Duration
}

// Ok reports whether the run delivered every item exactly once and in order.
func (r Result) Ok() bool {
	return r.Missing == 0 && r.Duplicates == 0 && r.OutOfOrder == 0
}

// Rate returns received items per second.
func (r Result) Rate() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Received) / r.Duration.Seconds()
}

func (c Config) validate() error {
	if c.Producers < 1 {
		return fmt.Errorf("%w: producers must be positive, got %d", ErrInvalidConfig, c.Producers)
	}
	if c.Consumers < 1 {
		return fmt.Errorf("%w: consumers must be positive, got %d", ErrInvalidConfig, c.Consumers)
	}
	if c.ItemsPerProducer < 0 {
		return fmt.Errorf("%w: items per producer must not be negative, got %d", ErrInvalidConfig, c.ItemsPerProducer)
	}
	return nil
}

// Run sends Producers*ItemsPerProducer items through one channel, each
// producer on its own sender clone and each consumer on its own receiver
// clone, then verifies the delivery. Cancelling ctx aborts the run.
func Run(ctx context.Context, cfg Config, logger Logger) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	inst, err := newInstruments()
	if err != nil {
		return Result{}, err
	}

	logger.Info("soak started",
		"run_id", cfg.RunID,
		"producers", cfg.Producers,
		"items_per_producer", cfg.ItemsPerProducer,
		"consumers", cfg.Consumers,
		"capacity", cfg.Capacity,
		"via_dispatcher", cfg.ViaDispatcher,
	)

	start := time.Now()
	var res Result
	t := newTally(inst, cfg)
	if cfg.ViaDispatcher {
		res, err = runDispatcher(ctx, cfg, logger, t)
	} else {
		res, err = runChannel(ctx, cfg, logger, t)
	}
	res.Duration = time.Since(start)
	inst.duration.Record(context.Background(), res.Duration.Seconds(), inst.attrs(cfg))

	if err != nil {
		logger.Error("soak aborted", "run_id", cfg.RunID, "error", err)
		return res, err
	}

	if !res.Ok() {
		err := fmt.Errorf("%w: %d missing, %d duplicated, %d out of order",
			ErrIntegrity, res.Missing, res.Duplicates, res.OutOfOrder)
		logger.Error("soak failed", "run_id", cfg.RunID, "error", err)
		return res, err
	}

	logger.Info("soak passed",
		"run_id", cfg.RunID,
		"received", res.Received,
		"duration", res.Duration,
	)
	return res, nil
}

func runChannel(ctx context.Context, cfg Config, logger Logger, t *tally) (Result, error) {
	tx, rx := channel.New[Item](channel.WithCapacity(cfg.Capacity))
	defer t.watch(cfg, logger, tx.Len)()

	consumers := pool.NewWithResults[[]Item]().WithContext(ctx).WithCancelOnError()
	for c := 0; c < cfg.Consumers; c++ {
		r := rx.Clone()
		consumers.Go(func(ctx context.Context) ([]Item, error) {
			defer r.Close()
			got, err := consume(ctx, r, cfg.RecvTimeout, t.receivedOne)
			logger.Debug("consumer finished", "run_id", cfg.RunID, "consumer", c, "received", len(got))
			if err != nil {
				return got, fmt.Errorf("consumer %d: %w", c, err)
			}
			return got, nil
		})
	}
	rx.Close()

	producers := pool.New().WithErrors().WithContext(ctx)
	for p := 0; p < cfg.Producers; p++ {
		s := tx.Clone()
		producers.Go(func(ctx context.Context) error {
			defer s.Close()
			for i := 0; i < cfg.ItemsPerProducer; i++ {
				// an unbounded send never waits, so it never sees ctx
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("producer %d item %d: %w", p, i, err)
				}
				if err := s.SendContext(ctx, Item{Producer: p, Seq: i}); err != nil {
					return fmt.Errorf("producer %d item %d: %w", p, i, err)
				}
				t.sentOne()
			}
			logger.Debug("producer finished", "run_id", cfg.RunID, "producer", p)
			return nil
		})
	}
	// the clones keep the channel open until the last producer returns
	tx.Close()

	produceErr := producers.Wait()
	streams, consumeErr := consumers.Wait()

	res := verify(cfg, streams, true)
	res.Sent = int(t.sent.Load())
	return res, errors.Join(produceErr, consumeErr)
}

// consume drains r until the channel reports closed, calling onItem for each
// item. A positive timeout bounds how long a single receive may wait.
func consume(ctx context.Context, r *channel.Receiver[Item], timeout time.Duration, onItem func()) ([]Item, error) {
	var got []Item
	for {
		v, err := recvOne(ctx, r, timeout)
		if errors.Is(err, channel.ErrClosed) {
			return got, nil
		}
		if err != nil {
			return got, err
		}
		got = append(got, v)
		onItem()
	}
}

func recvOne(ctx context.Context, r *channel.Receiver[Item], timeout time.Duration) (Item, error) {
	if timeout <= 0 {
		return r.RecvContext(ctx)
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := r.RecvContext(rctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return v, fmt.Errorf("no item within %s: %w", timeout, channel.ErrTimeout)
	}
	return v, err
}

// verify checks the consumer streams against the items the config asks for.
// Sent is left to the caller.
// Order is checked per stream since items of one producer may be split
// across consumers, and only when ordered is set.
func verify(cfg Config, streams [][]Item, ordered bool) Result {
	res := Result{
		RunID:       cfg.RunID,
		PerConsumer: make([]int, len(streams)),
	}

	received := 0
	for _, stream := range streams {
		received += len(stream)
	}
	seen := make(map[Item]int, received)
	for c, stream := range streams {
		res.PerConsumer[c] = len(stream)
		res.Received += len(stream)

		last := make(map[int]int)
		for _, it := range stream {
			seen[it]++
			if prev, ok := last[it.Producer]; ordered && ok && it.Seq <= prev {
				res.OutOfOrder++
			}
			last[it.Producer] = it.Seq
		}
	}

	for _, n := range seen {
		if n > 1 {
			res.Duplicates += n - 1
		}
	}
	for p := 0; p < cfg.Producers; p++ {
		for i := 0; i < cfg.ItemsPerProducer; i++ {
			if seen[Item{Producer: p, Seq: i}] == 0 {
				res.Missing++
			}
		}
	}

	return res
}
