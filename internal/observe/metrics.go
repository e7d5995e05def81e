// Package observe provides application-wide observability primitives for
// Longscribe: OpenTelemetry metrics, distributed tracing, and structured
// logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Longscribe metrics.
const meterName = "github.com/MrWong99/longscribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// JobDuration tracks whole-job wall time from media load to encoded
	// output.
	JobDuration metric.Float64Histogram

	// ChunkDuration tracks per-chunk recognition latency. Use with attribute:
	//   attribute.String("engine", ...)
	ChunkDuration metric.Float64Histogram

	// MediaLoadDuration tracks probe + normalise + decode time.
	MediaLoadDuration metric.Float64Histogram

	// --- Counters ---

	// JobsCompleted counts finished jobs. Use with attribute:
	//   attribute.String("status", "ok"|"partial"|"failed")
	JobsCompleted metric.Int64Counter

	// ChunksProcessed counts chunks by outcome. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	ChunksProcessed metric.Int64Counter

	// --- Error counters ---

	// ChunkErrors counts per-chunk recognition failures by engine.
	ChunkErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveJobs tracks the number of jobs currently holding an engine
	// handle.
	ActiveJobs metric.Int64UpDownCounter
}

// jobBuckets defines histogram bucket boundaries (in seconds) for whole-job
// and per-chunk durations; long media makes these much wider than typical
// request-latency buckets.
var jobBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.JobDuration, err = m.Float64Histogram("longscribe.job.duration",
		metric.WithDescription("Wall time of one transcription job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(jobBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunkDuration, err = m.Float64Histogram("longscribe.chunk.duration",
		metric.WithDescription("Recognition latency per chunk by engine."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(jobBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MediaLoadDuration, err = m.Float64Histogram("longscribe.media_load.duration",
		metric.WithDescription("Media probe, normalisation, and decode time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(jobBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.JobsCompleted, err = m.Int64Counter("longscribe.jobs.completed",
		metric.WithDescription("Total finished jobs by status."),
	); err != nil {
		return nil, err
	}
	if met.ChunksProcessed, err = m.Int64Counter("longscribe.chunks.processed",
		metric.WithDescription("Total processed chunks by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ChunkErrors, err = m.Int64Counter("longscribe.chunk.errors",
		metric.WithDescription("Total per-chunk recognition failures by engine."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveJobs, err = m.Int64UpDownCounter("longscribe.active_jobs",
		metric.WithDescription("Number of jobs currently holding an engine handle."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordChunk records one processed chunk: latency plus outcome counters.
func (m *Metrics) RecordChunk(ctx context.Context, engine string, seconds float64, failed bool) {
	m.ChunkDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("engine", engine)))
	status := "ok"
	if failed {
		status = "error"
		m.ChunkErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("engine", engine)))
	}
	m.ChunksProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// RecordJob records one finished job with its wall time and overall status.
func (m *Metrics) RecordJob(ctx context.Context, status string, seconds float64) {
	m.JobDuration.Record(ctx, seconds)
	m.JobsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}
