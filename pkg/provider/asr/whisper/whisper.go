// Package whisper provides a local whisper.cpp-backed recognition engine.
//
// It uses the whisper.cpp CGO bindings directly, so the whisper.cpp static
// library (libwhisper.a) and headers (whisper.h) must be available at link
// time via LIBRARY_PATH and C_INCLUDE_PATH environment variables.
//
// Each Load call reads the model weights from disk and returns a handle that
// owns them until Close. A handle creates a fresh whisper context per
// Recognize call — contexts are not reusable across inferences, but the
// loaded model behind them is, which is what makes the per-job chunk loop
// cheap: weights load once, every chunk only pays for inference.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Engine implements asr.Engine.
var _ asr.Engine = (*Engine)(nil)

// langAuto requests whisper.cpp language auto-detection.
const langAuto = "auto"

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithThreads sets the number of CPU threads used per inference. Zero (the
// default) lets whisper.cpp pick.
func WithThreads(n int) Option {
	return func(e *Engine) { e.threads = n }
}

// WithBeamSize sets the beam search width. Zero (the default) uses greedy
// decoding.
func WithBeamSize(n int) Option {
	return func(e *Engine) { e.beamSize = n }
}

// WithMaxSegmentLength caps segment length in characters, forcing whisper to
// emit shorter phrase segments. Zero disables the cap.
func WithMaxSegmentLength(n int) Option {
	return func(e *Engine) { e.maxSegmentLen = n }
}

// Engine implements asr.Engine using the whisper.cpp Go bindings.
// It is safe for concurrent use; each Load returns an independent handle
// with its own copy of the model weights.
type Engine struct {
	threads       int
	beamSize      int
	maxSegmentLen int
}

// New creates a whisper.cpp Engine. Functional options may override decoding
// defaults.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Load reads the model weights from the file path in opts.Model and returns
// a handle owning them. Fails with types.ModelLoadError when the path is
// empty or the weights cannot be loaded.
func (e *Engine) Load(_ context.Context, opts asr.LoadOptions) (asr.Handle, error) {
	if opts.Model == "" {
		return nil, &types.ModelLoadError{Model: opts.Model, Err: errors.New("whisper: model path must not be empty")}
	}
	model, err := whisperlib.New(opts.Model)
	if err != nil {
		return nil, &types.ModelLoadError{Model: opts.Model, Err: fmt.Errorf("whisper: %w", err)}
	}
	return &handle{
		model:         model,
		language:      opts.Language,
		translate:     opts.Translate,
		threads:       e.threads,
		beamSize:      e.beamSize,
		maxSegmentLen: e.maxSegmentLen,
	}, nil
}

// ---- handle -----------------------------------------------------------------

// handle is a loaded whisper.cpp model. Not safe for concurrent use; the
// owning session serialises all calls.
type handle struct {
	model         whisperlib.Model
	language      string
	translate     bool
	threads       int
	beamSize      int
	maxSegmentLen int

	once   sync.Once
	closed bool
}

// Compile-time assertion that handle satisfies asr.Handle.
var _ asr.Handle = (*handle)(nil)

// Recognize runs whisper.cpp inference over samples using a fresh context.
// langHint overrides the handle's configured language; empty means
// auto-detect. Timestamps in the result are relative to the start of samples.
func (h *handle) Recognize(ctx context.Context, samples []float32, langHint string) (*asr.Result, error) {
	if h.closed {
		return nil, errors.New("whisper: handle is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context cancelled: %w", err)
	}

	wctx, err := h.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := langHint
	if lang == "" {
		lang = h.language
	}
	if lang == "" {
		lang = langAuto
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using model default", "language", lang, "err", err)
	}
	wctx.SetTranslate(h.translate)
	wctx.SetTokenTimestamps(true)
	if h.threads > 0 {
		wctx.SetThreads(uint(h.threads))
	}
	if h.beamSize > 0 {
		wctx.SetBeamSize(h.beamSize)
	}
	if h.maxSegmentLen > 0 {
		wctx.SetMaxSegmentLength(uint(h.maxSegmentLen))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []types.Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, types.Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  text,
			Words: wordsFromTokens(seg.Tokens),
		})
	}

	detected := wctx.DetectedLanguage()
	if detected == "" || detected == langAuto {
		detected = lang
	}
	return &asr.Result{Segments: segments, Language: detected}, nil
}

// Close releases the model weights. Calling Close more than once is safe and
// returns nil.
func (h *handle) Close() error {
	var err error
	h.once.Do(func() {
		h.closed = true
		if h.model != nil {
			err = h.model.Close()
		}
	})
	return err
}
