package soak

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/OCAP2/handoff/internal/dispatcher"

	"github.com/sourcegraph/conc/pool"
)

const itemCommand = ":SOAK:ITEM:"

// runDispatcher pushes every item through a blocking buffered dispatcher
// command. With more than one worker the handling order is unspecified, so
// only a single worker run is checked for order.
func runDispatcher(ctx context.Context, cfg Config, logger Logger, t *tally) (Result, error) {
	d, err := dispatcher.New(logger)
	if err != nil {
		return Result{}, fmt.Errorf("creating dispatcher: %w", err)
	}

	size := cfg.Capacity
	if size <= 0 {
		size = cfg.Producers*cfg.ItemsPerProducer + 1
	}

	var (
		mu     sync.Mutex
		stream []Item
	)
	d.Register(itemCommand, func(e dispatcher.Event) (any, error) {
		it, err := parseItem(e.Args)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		stream = append(stream, it)
		mu.Unlock()
		t.receivedOne()
		return nil, nil
	}, dispatcher.Buffered(size), dispatcher.Blocking(), dispatcher.Workers(cfg.Consumers), dispatcher.Logged())

	stopWatch := t.watch(cfg, logger, func() int { return d.QueueLen(itemCommand) })

	producers := pool.New().WithErrors().WithContext(ctx)
	for p := 0; p < cfg.Producers; p++ {
		producers.Go(func(ctx context.Context) error {
			for i := 0; i < cfg.ItemsPerProducer; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				e := dispatcher.Event{
					Command: itemCommand,
					Args:    []string{strconv.Itoa(p), strconv.Itoa(i)},
				}
				if _, err := d.Dispatch(e); err != nil {
					return fmt.Errorf("producer %d item %d: %w", p, i, err)
				}
				t.sentOne()
			}
			logger.Debug("producer finished", "run_id", cfg.RunID, "producer", p)
			return nil
		})
	}

	produceErr := producers.Wait()
	// drains the queue before returning
	d.Close()
	stopWatch()

	// workers share one stream, so PerConsumer carries the aggregate
	res := verify(cfg, [][]Item{stream}, cfg.Consumers == 1)
	res.Sent = int(t.sent.Load())
	return res, produceErr
}

func parseItem(args []string) (Item, error) {
	if len(args) != 2 {
		return Item{}, fmt.Errorf("expected producer and sequence, got %d args", len(args))
	}
	p, err := strconv.Atoi(args[0])
	if err != nil {
		return Item{}, fmt.Errorf("parsing producer: %w", err)
	}
	seq, err := strconv.Atoi(args[1])
	if err != nil {
		return Item{}, fmt.Errorf("parsing sequence: %w", err)
	}
	return Item{Producer: p, Seq: seq}, nil
}
