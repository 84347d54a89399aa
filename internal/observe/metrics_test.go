package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValueWith returns the value of the data point whose attributes contain
// key=value, or -1 if no such point exists.
func sumValueWith(sum metricdata.Sum[int64], key, value string) int64 {
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"voxjot.recognition.duration", m.RecognitionDuration},
		{"voxjot.assist.duration", m.AssistDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.2)
		tc.h.Record(ctx, 1.5)
	}

	rm := collect(t, reader)
	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordAssist(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAssist(ctx, "proofread", 0.3, false)
	m.RecordAssist(ctx, "proofread", 0.4, false)
	m.RecordAssist(ctx, "analyze", 2.0, true)

	rm := collect(t, reader)

	reqs := findMetric(rm, "voxjot.assist.requests")
	if reqs == nil {
		t.Fatal("requests metric not found")
	}
	sum, ok := reqs.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("requests metric is not a sum")
	}
	if got := sumValueWith(sum, "status", "ok"); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	if got := sumValueWith(sum, "status", "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}

	fb := findMetric(rm, "voxjot.assist.fallbacks")
	if fb == nil {
		t.Fatal("fallbacks metric not found")
	}
	fbSum, ok := fb.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("fallbacks metric is not a sum")
	}
	if got := sumValueWith(fbSum, "op", "analyze"); got != 1 {
		t.Errorf("analyze fallbacks = %d, want 1", got)
	}
}

func TestRecordStoreWrite(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStoreWrite(ctx, nil)
	m.RecordStoreWrite(ctx, nil)
	m.RecordStoreWrite(ctx, errors.New("disk full"))

	rm := collect(t, reader)
	met := findMetric(rm, "voxjot.store.writes")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got := sumValueWith(sum, "status", "ok"); got != 2 {
		t.Errorf("ok writes = %d, want 2", got)
	}
	if got := sumValueWith(sum, "status", "error"); got != 1 {
		t.Errorf("error writes = %d, want 1", got)
	}
}

func TestRecordCommit(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommit(ctx, "insert")
	m.RecordCommit(ctx, "update")
	m.RecordCommit(ctx, "update")

	rm := collect(t, reader)
	met := findMetric(rm, "voxjot.record.commits")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got := sumValueWith(sum, "op", "update"); got != 2 {
		t.Errorf("updates = %d, want 2", got)
	}
}

func TestActiveDictationsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveDictations.Add(ctx, 1)
	m.ActiveDictations.Add(ctx, 1)
	m.ActiveDictations.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "voxjot.active_dictations")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}

func TestDictationStartedEnded(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.DictationStarted(ctx, "primary")
	m.DictationStarted(ctx, "inline")
	m.DictationEnded(ctx, "inline", 2.5)

	rm := collect(t, reader)
	met := findMetric(rm, "voxjot.active_dictations")
	if met == nil {
		t.Fatal("gauge not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got := sumValueWith(sum, "channel", "primary"); got != 1 {
		t.Errorf("primary gauge = %d, want 1", got)
	}
	if got := sumValueWith(sum, "channel", "inline"); got != 0 {
		t.Errorf("inline gauge = %d, want 0", got)
	}

	dur := findMetric(rm, "voxjot.recognition.duration")
	if dur == nil {
		t.Fatal("duration histogram not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Error("recognition duration should record one sample on session end")
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
