package segment

import (
	"context"
	"fmt"

	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/provider/vad/energy"
	"github.com/MrWong99/longscribe/pkg/types"
)

// minCutGapSec is the shortest non-speech gap a content-aware strategy will
// cut in. Narrower gaps are usually breath pauses mid-sentence.
const minCutGapSec = 0.3

// ---- time ------------------------------------------------------------------

// TimeStrategy cuts at fixed intervals with no content awareness. It is the
// fallback when no activity detector is available or the input is mostly
// non-speech.
type TimeStrategy struct{}

// Time creates the fixed-window strategy.
func Time() *TimeStrategy { return &TimeStrategy{} }

func (*TimeStrategy) Name() string { return "time" }

func (*TimeStrategy) cutPoints(_ context.Context, wave *types.Waveform, window float64) ([]float64, error) {
	var cuts []float64
	for c := window; c < wave.Duration(); c += window {
		cuts = append(cuts, c)
	}
	return cuts, nil
}

// ---- vad -------------------------------------------------------------------

// VADStrategy cuts inside detected non-speech gaps so no chunk boundary lands
// mid-word. It is the preferred strategy: boundaries in silence remove most of
// the duplicate-word ambiguity the reconciler would otherwise face.
type VADStrategy struct {
	detector vad.Detector
}

// VAD creates the activity-detector strategy.
func VAD(d vad.Detector) *VADStrategy { return &VADStrategy{detector: d} }

func (*VADStrategy) Name() string { return "vad" }

func (s *VADStrategy) cutPoints(ctx context.Context, wave *types.Waveform, window float64) ([]float64, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("no activity detector configured")
	}
	intervals, err := s.detector.Detect(ctx, wave)
	if err != nil {
		return nil, fmt.Errorf("detect speech: %w", err)
	}
	return cutsInGaps(intervals, window), nil
}

// cutsInGaps walks the non-speech gaps between speech intervals and places a
// cut at the midpoint of the first usable gap after each window's worth of
// audio. Speech intervals are never split, so a monologue longer than the
// window simply yields a longer chunk.
func cutsInGaps(speech []types.SpeechInterval, window float64) []float64 {
	var cuts []float64
	lastCut := 0.0
	prevEnd := 0.0
	for _, iv := range speech {
		gapStart, gapEnd := prevEnd, iv.Start
		if gapEnd-gapStart >= minCutGapSec && gapStart-lastCut >= window {
			cut := (gapStart + gapEnd) / 2
			cuts = append(cuts, cut)
			lastCut = cut
		}
		prevEnd = iv.End
	}
	// Silence after the last speech interval needs no cut: nothing follows
	// that a boundary could protect.
	return cuts
}

// ---- silence ---------------------------------------------------------------

// SilenceStrategy cuts at low-energy runs measured directly from the samples.
// Same placement logic as VAD but with a self-contained energy detector, for
// when no learned detector model is available.
type SilenceStrategy struct {
	detector vad.Detector
}

// Silence creates the energy-based strategy. Options tune the embedded
// detector.
func Silence(opts ...energy.Option) *SilenceStrategy {
	return &SilenceStrategy{detector: energy.New(opts...)}
}

func (*SilenceStrategy) Name() string { return "silence" }

func (s *SilenceStrategy) cutPoints(ctx context.Context, wave *types.Waveform, window float64) ([]float64, error) {
	intervals, err := s.detector.Detect(ctx, wave)
	if err != nil {
		return nil, fmt.Errorf("measure energy: %w", err)
	}
	return cutsInGaps(intervals, window), nil
}

// ---- auto ------------------------------------------------------------------

// AutoStrategy picks a concrete strategy from the media duration: media that
// fits a single window needs no content analysis at all, anything longer uses
// the activity detector when one is configured and falls back to energy-based
// silence detection otherwise.
type AutoStrategy struct {
	detector vad.Detector
}

// Auto creates the duration-driven strategy selector. d may be nil.
func Auto(d vad.Detector) *AutoStrategy { return &AutoStrategy{detector: d} }

func (*AutoStrategy) Name() string { return "auto" }

// Resolve returns the concrete strategy for the given media duration.
func (a *AutoStrategy) Resolve(duration float64, p Params) Strategy {
	switch {
	case duration <= p.withDefaults().WindowSec:
		return Time() // single chunk; the planner short-circuits before cutting
	case a.detector != nil:
		return VAD(a.detector)
	default:
		return Silence()
	}
}

func (a *AutoStrategy) cutPoints(ctx context.Context, wave *types.Waveform, window float64) ([]float64, error) {
	return a.Resolve(wave.Duration(), Params{WindowSec: window}).cutPoints(ctx, wave, window)
}
