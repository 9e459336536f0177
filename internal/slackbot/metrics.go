package slackbot

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome of one Events API delivery.
const (
	outcomeOK          = "ok"
	outcomeMalformed   = "malformed"
	outcomeError       = "error"
	outcomeIgnored     = "ignored"
	outcomeRateLimited = "rate_limited"
)

// Metrics counts deliveries by outcome. Dispatched counts events handed to a
// handler; the rest count why an event ended where it did.
type Metrics struct {
	Dispatched     atomic.Int64
	Errors         atomic.Int64
	Ignored        atomic.Int64
	RateLimited    atomic.Int64
	TotalLatencyNs atomic.Int64
}

type instruments struct {
	events  metric.Int64Counter
	latency metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider, logger *log.Logger) *instruments {
	meter := mp.Meter("greetbot/slackbot")
	inst := &instruments{}

	var err error
	inst.events, err = meter.Int64Counter(
		"greetbot.slack.events.total",
		metric.WithDescription("Slack events received, by event type and outcome"),
	)
	if err != nil {
		logger.Printf("observability: failed to create slack event counter: %v", err)
	}
	inst.latency, err = meter.Float64Histogram(
		"greetbot.slack.dispatch.duration",
		metric.WithDescription("Time spent in the event handler, including the reply"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Printf("observability: failed to create slack dispatch histogram: %v", err)
	}
	return inst
}

// observe records one delivery. d is zero for events that never reached a handler.
func (a *App) observe(ctx context.Context, kind, outcome string, d time.Duration) {
	switch outcome {
	case outcomeIgnored:
		a.metrics.Ignored.Add(1)
	case outcomeRateLimited:
		a.metrics.RateLimited.Add(1)
	case outcomeMalformed, outcomeError:
		a.metrics.Errors.Add(1)
	}
	if d > 0 {
		a.metrics.TotalLatencyNs.Add(d.Nanoseconds())
	}

	if a.inst == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("slack.event_type", kind),
		attribute.String("outcome", outcome),
	)
	if a.inst.events != nil {
		a.inst.events.Add(ctx, 1, attrs)
	}
	if d > 0 && a.inst.latency != nil {
		a.inst.latency.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	}
}
