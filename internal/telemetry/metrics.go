package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cedar"

// Metrics holds the metric instruments for a cedar session. All
// counters are cumulative and every Record method is safe on a nil
// receiver, so callers never need to guard for disabled telemetry.
type Metrics struct {
	// RPC traffic counters
	RequestsSent   metric.Int64Counter
	FramesReceived metric.Int64Counter

	// Protocol-skew counters
	MalformedFrames metric.Int64Counter
	StaleFrames     metric.Int64Counter

	// Dispatch counters
	HandlerFailures metric.Int64Counter
	BackendErrors   metric.Int64Counter

	// Round trip from send to the matching reply
	RoundTrip metric.Float64Histogram
}

// NewMetrics creates all instruments. They are no-ops when no
// MeterProvider is registered, so this is safe to call unconditionally.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RequestsSent, err = meter.Int64Counter("rpc.requests.sent",
		metric.WithDescription("Requests written to the backend, partitioned by method"))
	if err != nil {
		return nil, err
	}

	m.FramesReceived, err = meter.Int64Counter("rpc.frames.received",
		metric.WithDescription("Well-formed inbound frames, partitioned by kind"))
	if err != nil {
		return nil, err
	}

	m.MalformedFrames, err = meter.Int64Counter("rpc.frames.malformed",
		metric.WithDescription("Inbound lines dropped because they did not parse as frames"))
	if err != nil {
		return nil, err
	}

	m.StaleFrames, err = meter.Int64Counter("rpc.frames.stale",
		metric.WithDescription("Replies dropped because their id did not match the pending request"))
	if err != nil {
		return nil, err
	}

	m.HandlerFailures, err = meter.Int64Counter("rpc.handler.failures",
		metric.WithDescription("Handler invocations that failed at the dispatch boundary"))
	if err != nil {
		return nil, err
	}

	m.BackendErrors, err = meter.Int64Counter("rpc.backend.errors",
		metric.WithDescription("Error frames reported by the backend"))
	if err != nil {
		return nil, err
	}

	m.RoundTrip, err = meter.Float64Histogram("rpc.roundtrip.duration",
		metric.WithDescription("Time from request send to the matching reply"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records a request written to the backend.
func (m *Metrics) RecordRequest(method string) {
	if m == nil {
		return
	}
	m.RequestsSent.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("rpc.method", method),
	))
}

// RecordFrame records one well-formed inbound frame.
func (m *Metrics) RecordFrame(kind string) {
	if m == nil {
		return
	}
	m.FramesReceived.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("rpc.frame.kind", kind),
	))
}

// RecordMalformed records a dropped unparseable line.
func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.MalformedFrames.Add(context.Background(), 1)
}

// RecordStale records a dropped reply with a non-matching id.
func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.StaleFrames.Add(context.Background(), 1)
}

// RecordHandlerFailure records a handler error caught at dispatch.
func (m *Metrics) RecordHandlerFailure(handler string) {
	if m == nil {
		return
	}
	m.HandlerFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("rpc.handler", handler),
	))
}

// RecordBackendError records a backend-reported error frame.
func (m *Metrics) RecordBackendError() {
	if m == nil {
		return
	}
	m.BackendErrors.Add(context.Background(), 1)
}

// RecordRoundTrip records the time from send to the matching reply.
func (m *Metrics) RecordRoundTrip(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.RoundTrip.Record(context.Background(), d.Seconds(), metric.WithAttributes(
		attribute.String("rpc.method", method),
	))
}
