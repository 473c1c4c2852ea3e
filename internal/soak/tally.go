package soak

import (
	"context"
	"sync/atomic"

	"github.com/OCAP2/handoff/internal/monitor"

	"go.opentelemetry.io/otel/metric"
)

// tally counts items for the progress monitor and mirrors them to the otel counters.
type tally struct {
	inst  *instruments
	attrs metric.MeasurementOption

	sent     atomic.Int64
	received atomic.Int64
}

func newTally(inst *instruments, cfg Config) *tally {
	return &tally{inst: inst, attrs: inst.attrs(cfg)}
}

func (t *tally) sentOne() {
	t.sent.Add(1)
	t.inst.sent.Add(context.Background(), 1, t.attrs)
}

func (t *tally) receivedOne() {
	t.received.Add(1)
	t.inst.received.Add(context.Background(), 1, t.attrs)
}

// watch starts a progress monitor that reads queued for the backlog.
// The returned func stops it.
func (t *tally) watch(cfg Config, logger Logger, queued func() int) func() {
	mon := monitor.NewService(logger, cfg.ProgressInterval, func() monitor.Status {
		return monitor.Status{
			Sent:     t.sent.Load(),
			Received: t.received.Load(),
			Queued:   queued(),
		}
	})
	mon.Start()
	return mon.Stop
}
