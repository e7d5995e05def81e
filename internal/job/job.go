// Package job runs transcription jobs end to end: load media, plan chunks,
// recognise each chunk sequentially through one engine session, reconcile the
// per-chunk transcripts, and encode the merged timeline.
//
// Chunks within a job run sequentially on purpose. The engine handle and its
// accelerator memory are shared mutable state; processing two chunks at once
// would multiply peak memory for a modest speedup. Concurrency lives at the
// job level instead, bounded by a semaphore so only a configured number of
// engine instances exist at a time.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/longscribe/internal/encode"
	"github.com/MrWong99/longscribe/internal/media"
	"github.com/MrWong99/longscribe/internal/observe"
	"github.com/MrWong99/longscribe/internal/recognize"
	"github.com/MrWong99/longscribe/internal/reconcile"
	"github.com/MrWong99/longscribe/internal/segment"
	"github.com/MrWong99/longscribe/pkg/provider/align"
	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/provider/diarize"
	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Options configures one submitted job.
type Options struct {
	// Model is passed to the engine's load options.
	Model string
	// Strategy selects chunk planning; nil means auto.
	Strategy segment.Strategy
	// WindowSec and OverlapSec tune chunk geometry; zero values use the
	// segmenter defaults.
	WindowSec  float64
	OverlapSec float64
	// LanguageHint skips auto-detection when set.
	LanguageHint string
	// Translate requests translation to English instead of transcription.
	Translate bool
	// Diarize enables speaker attribution when the manager has a diarizer.
	Diarize bool
	// Progress, when set, is called after every chunk with the number of
	// chunks finished and the total. Called from the job goroutine.
	Progress func(done, total int)
}

// ChunkError records one non-fatal chunk failure in the final result.
type ChunkError struct {
	ChunkIndex int     `json:"chunk_index"`
	Start      float64 `json:"start_sec"`
	End        float64 `json:"end_sec"`
	Message    string  `json:"message"`
}

// Result is the complete outcome of one job.
type Result struct {
	JobID          string          `json:"job_id"`
	Outputs        *encode.Outputs `json:"outputs"`
	Language       string          `json:"language"`
	PerChunkErrors []ChunkError    `json:"per_chunk_errors,omitempty"`
	MediaInfo      *media.Info     `json:"-"`
	Duration       float64         `json:"duration_sec"`
	NumChunks      int             `json:"num_chunks"`
	Strategy       string          `json:"chunking_strategy"`
	ProcessingTime float64         `json:"processing_time_sec"`
	RealtimeFactor float64         `json:"realtime_factor"`
}

// MediaLoader loads a media file into a normalised waveform. Implemented by
// media.Loader; swapped for a stub in tests.
type MediaLoader interface {
	Load(ctx context.Context, path string) (*types.Waveform, *media.Info, error)
}

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*Manager)

// WithDetector supplies the speech activity detector used by VAD and auto
// chunking.
func WithDetector(d vad.Detector) ManagerOption {
	return func(m *Manager) { m.detector = d }
}

// WithAligner adds a word-timing refinement stage to every job.
func WithAligner(a align.Aligner) ManagerOption {
	return func(m *Manager) { m.aligner = a }
}

// WithDiarizer supplies the diarizer used when a job requests speaker
// attribution.
func WithDiarizer(d diarize.Diarizer) ManagerOption {
	return func(m *Manager) { m.diarizer = d }
}

// WithMaxConcurrent bounds how many jobs may hold an engine instance at once.
// Defaults to 1.
func WithMaxConcurrent(n int64) ManagerOption {
	return func(m *Manager) { m.maxConcurrent = n }
}

// WithMetrics overrides the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(met *observe.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = met }
}

// WithLogger overrides the manager logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// Manager accepts jobs and runs them against one recognition engine
// configuration. Safe for concurrent use.
type Manager struct {
	engine   asr.Engine
	loader   MediaLoader
	detector vad.Detector
	aligner  align.Aligner
	diarizer diarize.Diarizer

	maxConcurrent int64
	sem           *semaphore.Weighted
	metrics       *observe.Metrics
	log           *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	id     string
	done   chan struct{}
	result *Result
	err    error
}

// NewManager creates a Manager around the given engine and media loader.
func NewManager(engine asr.Engine, loader MediaLoader, opts ...ManagerOption) *Manager {
	m := &Manager{
		engine:        engine,
		loader:        loader,
		maxConcurrent: 1,
		log:           slog.Default().With("component", "job"),
		jobs:          make(map[string]*job),
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	m.sem = semaphore.NewWeighted(m.maxConcurrent)
	return m
}

// Submit queues a transcription job for mediaPath and returns its handle.
// The job runs asynchronously; cancelling ctx stops it before its next chunk.
func (m *Manager) Submit(ctx context.Context, mediaPath string, opts Options) (string, error) {
	if mediaPath == "" {
		return "", &types.InvalidInputError{Reason: "empty media path"}
	}

	j := &job{id: uuid.NewString(), done: make(chan struct{})}
	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	go func() {
		defer close(j.done)
		if err := m.sem.Acquire(ctx, 1); err != nil {
			j.err = fmt.Errorf("job %s: %w", j.id, err)
			return
		}
		defer m.sem.Release(1)
		j.result, j.err = m.run(ctx, j.id, mediaPath, opts)
	}()
	return j.id, nil
}

// Await blocks until the job finishes or ctx is cancelled.
func (m *Manager) Await(ctx context.Context, jobID string) (*Result, error) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, &types.InvalidInputError{Reason: fmt.Sprintf("unknown job %q", jobID)}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-j.done:
		return j.result, j.err
	}
}

// Run is the synchronous convenience form: submit and await in one call.
func (m *Manager) Run(ctx context.Context, mediaPath string, opts Options) (*Result, error) {
	id, err := m.Submit(ctx, mediaPath, opts)
	if err != nil {
		return nil, err
	}
	return m.Await(ctx, id)
}

// run executes the whole pipeline for one job.
func (m *Manager) run(ctx context.Context, jobID, mediaPath string, opts Options) (res *Result, err error) {
	ctx, span := observe.StartSpan(ctx, "job.run")
	defer span.End()

	log := m.log.With("job", jobID)
	started := time.Now()
	m.metrics.ActiveJobs.Add(ctx, 1)
	defer m.metrics.ActiveJobs.Add(ctx, -1)
	defer func() {
		status := "ok"
		switch {
		case err != nil:
			status = "failed"
		case res != nil && len(res.PerChunkErrors) > 0:
			status = "partial"
		}
		m.metrics.RecordJob(ctx, status, time.Since(started).Seconds())
	}()

	// Load and normalise the media.
	loadStart := time.Now()
	wave, info, err := m.loader.Load(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	m.metrics.MediaLoadDuration.Record(ctx, time.Since(loadStart).Seconds())
	duration := wave.Duration()

	// Plan chunks.
	strategy := opts.Strategy
	if strategy == nil {
		strategy = segment.Auto(m.detector)
	}
	params := segment.Params{WindowSec: opts.WindowSec, OverlapSec: opts.OverlapSec}
	if auto, ok := strategy.(*segment.AutoStrategy); ok {
		strategy = auto.Resolve(duration, params)
	}
	chunks, err := segment.Plan(ctx, wave, strategy, params)
	if err != nil {
		return nil, err
	}
	log.Info("job planned",
		"media", mediaPath,
		"duration_sec", duration,
		"chunks", len(chunks),
		"strategy", strategy.Name())

	// One engine session for the whole job, released on every exit path.
	sessionOpts := []recognize.SessionOption{recognize.WithLogger(log)}
	if m.aligner != nil {
		sessionOpts = append(sessionOpts, recognize.WithAligner(m.aligner))
	}
	if opts.Diarize && m.diarizer != nil {
		sessionOpts = append(sessionOpts, recognize.WithDiarizer(m.diarizer))
	}
	if opts.LanguageHint != "" {
		sessionOpts = append(sessionOpts, recognize.WithLanguageHint(opts.LanguageHint))
	}
	session, err := recognize.NewSession(ctx, m.engine, asr.LoadOptions{
		Model:     opts.Model,
		Language:  opts.LanguageHint,
		Translate: opts.Translate,
	}, sessionOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("session close failed", "error", cerr)
		}
	}()

	// Sequential chunk loop. A chunk in flight runs to completion;
	// cancellation takes effect before the next one starts.
	transcripts := make([]reconcile.ChunkTranscript, 0, len(chunks))
	var chunkErrs []ChunkError
	for done, chunk := range chunks {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("job %s: %w", jobID, cerr)
		}
		chunkStart := time.Now()
		chunkCtx, chunkSpan := observe.StartSpan(ctx, "job.chunk")
		cr, perr := session.Process(chunkCtx, wave, chunk)
		chunkSpan.End()
		m.metrics.RecordChunk(ctx, opts.Model, time.Since(chunkStart).Seconds(), perr != nil)
		if perr != nil {
			var recErr *types.RecognitionError
			if !errors.As(perr, &recErr) {
				return nil, perr
			}
			log.Warn("chunk failed",
				"chunk", chunk.Index,
				"start_sec", chunk.Start,
				"end_sec", chunk.End,
				"error", recErr.Err)
			chunkErrs = append(chunkErrs, ChunkError{
				ChunkIndex: recErr.ChunkIndex,
				Start:      recErr.Start,
				End:        recErr.End,
				Message:    recErr.Err.Error(),
			})
		} else {
			transcripts = append(transcripts, reconcile.ChunkTranscript{
				Chunk:    cr.Chunk,
				Segments: cr.Segments,
			})
		}
		if opts.Progress != nil {
			opts.Progress(done+1, len(chunks))
		}
	}

	// Merge and encode.
	timeline, err := reconcile.Merge(transcripts)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(started).Seconds()
	res = &Result{
		JobID:          jobID,
		Outputs:        encode.All(timeline),
		Language:       session.Language(),
		PerChunkErrors: chunkErrs,
		MediaInfo:      info,
		Duration:       duration,
		NumChunks:      len(chunks),
		Strategy:       strategy.Name(),
		ProcessingTime: elapsed,
	}
	if elapsed > 0 {
		res.RealtimeFactor = duration / elapsed
	}
	log.Info("job finished",
		"chunks", len(chunks),
		"failed_chunks", len(chunkErrs),
		"language", res.Language,
		"processing_sec", elapsed)
	return res, nil
}
