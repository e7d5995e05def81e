package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns Metrics backed by a manual reader so recorded data
// can be inspected.
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

// collect gathers all exported metrics into a name-indexed map.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMetrics_AllInstrumentsCreated(t *testing.T) {
	m, _ := newTestMetrics(t)

	if m.JobDuration == nil || m.ChunkDuration == nil || m.MediaLoadDuration == nil {
		t.Error("histogram instrument is nil")
	}
	if m.JobsCompleted == nil || m.ChunksProcessed == nil || m.ChunkErrors == nil {
		t.Error("counter instrument is nil")
	}
	if m.ActiveJobs == nil {
		t.Error("gauge instrument is nil")
	}
}

func TestRecordChunk_SuccessAndFailure(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordChunk(ctx, "whisper", 2.5, false)
	m.RecordChunk(ctx, "whisper", 4.0, true)

	data := collect(t, reader)

	durations, ok := data["longscribe.chunk.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(durations.DataPoints) == 0 {
		t.Fatal("chunk duration histogram has no data points")
	}
	if got := durations.DataPoints[0].Count; got != 2 {
		t.Errorf("chunk duration count = %d, want 2", got)
	}

	errors, ok := data["longscribe.chunk.errors"].Data.(metricdata.Sum[int64])
	if !ok || len(errors.DataPoints) == 0 {
		t.Fatal("chunk errors counter has no data points")
	}
	if got := errors.DataPoints[0].Value; got != 1 {
		t.Errorf("chunk errors = %d, want 1", got)
	}

	processed, ok := data["longscribe.chunks.processed"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("chunks processed counter missing")
	}
	var total int64
	for _, dp := range processed.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("chunks processed total = %d, want 2", total)
	}
}

func TestRecordJob(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJob(ctx, "ok", 120.0)
	m.RecordJob(ctx, "partial", 30.0)

	data := collect(t, reader)

	jobs, ok := data["longscribe.jobs.completed"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("jobs completed counter missing")
	}
	if len(jobs.DataPoints) != 2 {
		t.Errorf("got %d status series, want 2 (ok, partial)", len(jobs.DataPoints))
	}

	durations, ok := data["longscribe.job.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(durations.DataPoints) == 0 {
		t.Fatal("job duration histogram has no data points")
	}
	if got := durations.DataPoints[0].Sum; got != 150.0 {
		t.Errorf("job duration sum = %v, want 150", got)
	}
}

func TestActiveJobs_UpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveJobs.Add(ctx, 1)
	m.ActiveJobs.Add(ctx, 1)
	m.ActiveJobs.Add(ctx, -1)

	data := collect(t, reader)
	active, ok := data["longscribe.active_jobs"].Data.(metricdata.Sum[int64])
	if !ok || len(active.DataPoints) == 0 {
		t.Fatal("active jobs gauge has no data points")
	}
	if got := active.DataPoints[0].Value; got != 1 {
		t.Errorf("active jobs = %d, want 1", got)
	}
}
