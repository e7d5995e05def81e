// Package recognize drives the recognition engine over planned chunks.
//
// A Session owns exactly one loaded engine handle for the lifetime of one
// job. The handle is acquired before the first chunk, reused for every chunk,
// and released exactly once, whatever the exit path. The language detected on
// the first successful chunk is cached and passed as a hint to all later
// chunks: one job, one language. Multi-language media is a known limitation.
package recognize

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/longscribe/pkg/provider/align"
	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/provider/diarize"
	"github.com/MrWong99/longscribe/pkg/types"
)

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithAligner adds a word-timing refinement pass after recognition.
func WithAligner(a align.Aligner) SessionOption {
	return func(s *Session) { s.aligner = a }
}

// WithDiarizer adds a speaker-attribution pass after recognition.
func WithDiarizer(d diarize.Diarizer) SessionOption {
	return func(s *Session) { s.diarizer = d }
}

// WithLanguageHint seeds the cached language so auto-detection on the first
// chunk is skipped.
func WithLanguageHint(lang string) SessionOption {
	return func(s *Session) { s.language = lang }
}

// WithLogger overrides the session logger.
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Session holds the engine handle and per-job recognition state. A session is
// exclusively owned by one job and must not be shared: neither the handle nor
// the cached language is synchronised for concurrent chunks.
type Session struct {
	handle   asr.Handle
	aligner  align.Aligner
	diarizer diarize.Diarizer

	// language is empty until the first successful chunk detects it (or a
	// caller hint seeds it).
	language string

	log       *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewSession loads the engine and returns a session ready to process chunks.
// Load failures are fatal to the job and surface as ModelLoadError from the
// engine. The caller must Close the session on every exit path.
func NewSession(ctx context.Context, engine asr.Engine, load asr.LoadOptions, opts ...SessionOption) (*Session, error) {
	s := &Session{
		language: load.Language,
		log:      slog.Default().With("component", "recognize"),
	}
	for _, o := range opts {
		o(s)
	}

	handle, err := engine.Load(ctx, load)
	if err != nil {
		return nil, err
	}
	s.handle = handle
	return s, nil
}

// Language returns the cached recognition language, or "" if no chunk has
// succeeded yet and no hint was given.
func (s *Session) Language() string { return s.language }

// Close releases the engine handle. Safe to call multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.handle != nil {
			s.closeErr = s.handle.Close()
		}
	})
	return s.closeErr
}

// ChunkResult is the outcome of recognising one chunk. Timestamps are
// absolute media time.
type ChunkResult struct {
	Chunk    types.Chunk
	Segments []types.Segment
	Language string
}

// Process recognises one chunk of the waveform.
//
// The chunk's sample range is sliced from wave, recognised with the cached
// language as a hint, optionally aligned and diarized, and re-based from
// chunk-local to absolute media time. On the first successful chunk the
// detected language is cached for the rest of the job. Failures return
// RecognitionError carrying the chunk's identity and time range; they are
// not fatal to the session.
func (s *Session) Process(ctx context.Context, wave *types.Waveform, chunk types.Chunk) (*ChunkResult, error) {
	samples := wave.Slice(chunk.Start, chunk.End)

	started := time.Now()
	res, err := s.handle.Recognize(ctx, samples, s.language)
	if err != nil {
		return nil, chunkErr(chunk, err)
	}
	if s.language == "" && res.Language != "" {
		s.language = res.Language
		s.log.Info("language detected", "language", res.Language, "chunk", chunk.Index)
	}

	segments := res.Segments
	if s.aligner != nil {
		segments, err = s.aligner.Align(ctx, samples, wave.SampleRate, segments, s.language)
		if err != nil {
			return nil, chunkErr(chunk, err)
		}
	}
	if s.diarizer != nil {
		chunkWave := &types.Waveform{Samples: samples, SampleRate: wave.SampleRate}
		segments, err = s.diarizer.Assign(ctx, chunkWave, segments)
		if err != nil {
			return nil, chunkErr(chunk, err)
		}
	}

	segments = rebase(segments, chunk)
	s.log.Debug("chunk recognised",
		"chunk", chunk.Index,
		"segments", len(segments),
		"elapsed", time.Since(started))

	return &ChunkResult{Chunk: chunk, Segments: segments, Language: s.language}, nil
}

// chunkErr wraps a chunk-stage failure with the chunk's identity and time
// range.
func chunkErr(chunk types.Chunk, err error) error {
	return &types.RecognitionError{
		ChunkIndex: chunk.Index,
		Start:      chunk.Start,
		End:        chunk.End,
		Err:        err,
	}
}

// rebase shifts chunk-local timestamps to absolute media time and tags every
// segment with the chunk index for traceability through the merge.
func rebase(segments []types.Segment, chunk types.Chunk) []types.Segment {
	out := make([]types.Segment, len(segments))
	for i, seg := range segments {
		seg.Start += chunk.Start
		seg.End += chunk.Start
		seg.ChunkIndex = chunk.Index
		words := make([]types.Word, len(seg.Words))
		for j, w := range seg.Words {
			w.Start += chunk.Start
			w.End += chunk.Start
			words[j] = w
		}
		seg.Words = words
		out[i] = seg
	}
	return out
}
