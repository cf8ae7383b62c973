package scenario

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records per-trial run metrics to OpenTelemetry. A nil
// *MetricsRecorder is safe to call methods on (every method no-ops),
// so callers that don't care about metrics can leave Config.Metrics
// unset without a nil check of their own.
type MetricsRecorder struct {
	meter metric.Meter
	once  sync.Once

	trialStarts    metric.Int64Counter
	trialSuccesses metric.Int64Counter
	trialFailures  metric.Int64Counter
	trialDuration  metric.Float64Histogram
}

// NewMetricsRecorder constructs a recorder against the global
// MeterProvider, matching whatever internal/telemetry has configured.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{
		meter: otel.GetMeterProvider().Meter("kigalisim/scenario"),
	}
}

func (m *MetricsRecorder) init() {
	m.once.Do(func() {
		var err error
		m.trialStarts, err = m.meter.Int64Counter("scenario.trials.started")
		if err != nil {
			return
		}
		m.trialSuccesses, _ = m.meter.Int64Counter("scenario.trials.succeeded")
		m.trialFailures, _ = m.meter.Int64Counter("scenario.trials.failed")
		m.trialDuration, _ = m.meter.Float64Histogram("scenario.trials.duration_ms")
	})
}

// RecordStart records a trial beginning execution.
func (m *MetricsRecorder) RecordStart(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.init()
	if m.trialStarts != nil {
		m.trialStarts.Add(ctx, 1, metric.WithAttributes(attribute.String("scenario", name)))
	}
}

// RecordSuccess records a trial completing without error.
func (m *MetricsRecorder) RecordSuccess(ctx context.Context, name string, d time.Duration) {
	if m == nil {
		return
	}
	m.init()
	attrs := metric.WithAttributes(attribute.String("scenario", name))
	if m.trialSuccesses != nil {
		m.trialSuccesses.Add(ctx, 1, attrs)
	}
	if m.trialDuration != nil {
		m.trialDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

// RecordFailure records a trial that returned an error.
func (m *MetricsRecorder) RecordFailure(ctx context.Context, name string, d time.Duration) {
	if m == nil {
		return
	}
	m.init()
	attrs := metric.WithAttributes(attribute.String("scenario", name))
	if m.trialFailures != nil {
		m.trialFailures.Add(ctx, 1, attrs)
	}
	if m.trialDuration != nil {
		m.trialDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}
