// Package observe provides application-wide observability primitives for
// Voxjot: OpenTelemetry metrics, tracing helpers, and structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Voxjot metrics.
const meterName = "github.com/voxjot/voxjot"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RecognitionDuration tracks the wall-clock length of dictation sessions,
	// from stream start to final transcript. Use with:
	//   attribute.String("channel", "primary"|"inline")
	RecognitionDuration metric.Float64Histogram

	// AssistDuration tracks AI assist call latency. Use with:
	//   attribute.String("op", "analyze"|"proofread"|"keywords"|"chat")
	AssistDuration metric.Float64Histogram

	// AssistRequests counts assist calls. Use with attributes:
	//   attribute.String("op", ...), attribute.String("status", "ok"|"error")
	AssistRequests metric.Int64Counter

	// AssistFallbacks counts assist calls that degraded to their deterministic
	// fallback value. Use with attribute.String("op", ...).
	AssistFallbacks metric.Int64Counter

	// StoreWrites counts journal blob writes. Use with:
	//   attribute.String("status", "ok"|"error")
	StoreWrites metric.Int64Counter

	// RecordCommits counts record merges into the journal. Use with:
	//   attribute.String("op", "insert"|"update")
	RecordCommits metric.Int64Counter

	// ActiveDictations tracks live recognition sessions by channel.
	ActiveDictations metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// both sub-second assist round-trips and multi-second dictation sessions.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionDuration, err = m.Float64Histogram("voxjot.recognition.duration",
		metric.WithDescription("Wall-clock length of dictation sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssistDuration, err = m.Float64Histogram("voxjot.assist.duration",
		metric.WithDescription("Latency of AI assist calls by operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssistRequests, err = m.Int64Counter("voxjot.assist.requests",
		metric.WithDescription("Total assist calls by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.AssistFallbacks, err = m.Int64Counter("voxjot.assist.fallbacks",
		metric.WithDescription("Assist calls that degraded to their deterministic fallback."),
	); err != nil {
		return nil, err
	}
	if met.StoreWrites, err = m.Int64Counter("voxjot.store.writes",
		metric.WithDescription("Journal blob writes by status."),
	); err != nil {
		return nil, err
	}
	if met.RecordCommits, err = m.Int64Counter("voxjot.record.commits",
		metric.WithDescription("Record merges into the journal by operation."),
	); err != nil {
		return nil, err
	}
	if met.ActiveDictations, err = m.Int64UpDownCounter("voxjot.active_dictations",
		metric.WithDescription("Live recognition sessions by channel."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which should not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAssist records one assist call: latency, request count, and — when
// the deterministic fallback was applied — the fallback count.
func (m *Metrics) RecordAssist(ctx context.Context, op string, seconds float64, fellBack bool) {
	status := "ok"
	if fellBack {
		status = "error"
		m.AssistFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
	m.AssistDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
	m.AssistRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	))
}

// RecordStoreWrite records one journal blob write.
func (m *Metrics) RecordStoreWrite(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordCommit records one record merge.
func (m *Metrics) RecordCommit(ctx context.Context, op string) {
	m.RecordCommits.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// DictationStarted marks a recognition session as live.
func (m *Metrics) DictationStarted(ctx context.Context, channel string) {
	m.ActiveDictations.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

// DictationEnded marks a recognition session as finished and records its
// wall-clock duration.
func (m *Metrics) DictationEnded(ctx context.Context, channel string, seconds float64) {
	m.ActiveDictations.Add(ctx, -1, metric.WithAttributes(attribute.String("channel", channel)))
	m.RecognitionDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("channel", channel)))
}
