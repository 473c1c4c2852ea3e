package soak

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/handoff/internal/soak"

type instruments struct {
	sent     metric.Int64Counter
	received metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := otel.Meter(instrumentationName)

	var (
		inst instruments
		err  error
	)

	inst.sent, err = m.Int64Counter(
		"soak.items.sent",
		metric.WithDescription("Items handed to the channel by producers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}

	inst.received, err = m.Int64Counter(
		"soak.items.received",
		metric.WithDescription("Items taken from the channel by consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}

	inst.duration, err = m.Float64Histogram(
		"soak.run.duration",
		metric.WithDescription("Wall time of a soak run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &inst, nil
}

func (inst *instruments) attrs(cfg Config) metric.MeasurementOption {
	target := "channel"
	if cfg.ViaDispatcher {
		target = "dispatcher"
	}
	return metric.WithAttributes(
		attribute.String("run_id", cfg.RunID),
		attribute.String("target", target),
	)
}
