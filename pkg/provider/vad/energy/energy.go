// Package energy provides an RMS-energy speech activity detector.
//
// It classifies fixed-size frames by root-mean-square energy against a
// threshold, then merges the frame decisions into intervals: speech runs
// shorter than the minimum speech duration are discarded, and silence gaps
// shorter than the minimum silence duration are bridged. No learned model is
// involved, which keeps the detector dependency-free and deterministic — the
// trade-off is that sustained non-speech noise (music, hum) reads as speech.
package energy

import (
	"context"
	"math"

	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Detector implements vad.Detector.
var _ vad.Detector = (*Detector)(nil)

const (
	// defaultRMSThreshold is the normalised RMS level above which a frame is
	// classified as speech. Full-scale is 1.0; 0.01 corresponds to roughly
	// -40 dBFS, comfortably above line noise.
	defaultRMSThreshold = 0.01

	defaultFrameMs      = 30
	defaultMinSpeechMs  = 250
	defaultMinSilenceMs = 100
)

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithThreshold sets the normalised RMS speech threshold in (0, 1].
// Defaults to 0.01.
func WithThreshold(th float64) Option {
	return func(d *Detector) { d.threshold = th }
}

// WithFrameMs sets the analysis frame size in milliseconds. Defaults to 30.
func WithFrameMs(ms int) Option {
	return func(d *Detector) { d.frameMs = ms }
}

// WithMinSpeechMs sets the minimum duration of a reported speech interval.
// Shorter bursts are treated as noise. Defaults to 250 ms.
func WithMinSpeechMs(ms int) Option {
	return func(d *Detector) { d.minSpeechMs = ms }
}

// WithMinSilenceMs sets the minimum silence duration that separates two
// speech intervals; shorter gaps are bridged. Defaults to 100 ms.
func WithMinSilenceMs(ms int) Option {
	return func(d *Detector) { d.minSilenceMs = ms }
}

// Detector implements vad.Detector using windowed RMS energy.
// Safe for concurrent use; Detect keeps all state on the stack.
type Detector struct {
	threshold    float64
	frameMs      int
	minSpeechMs  int
	minSilenceMs int
}

// New creates an energy Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		threshold:    defaultRMSThreshold,
		frameMs:      defaultFrameMs,
		minSpeechMs:  defaultMinSpeechMs,
		minSilenceMs: defaultMinSilenceMs,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect classifies frames and merges them into speech intervals.
func (d *Detector) Detect(ctx context.Context, wave *types.Waveform) ([]types.SpeechInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if wave == nil || len(wave.Samples) == 0 || wave.SampleRate <= 0 {
		return nil, nil
	}

	frameLen := wave.SampleRate * d.frameMs / 1000
	if frameLen <= 0 {
		frameLen = 1
	}
	// Frame-level classification.
	var raw []types.SpeechInterval
	var open bool
	var start float64
	for off := 0; off < len(wave.Samples); off += frameLen {
		end := off + frameLen
		if end > len(wave.Samples) {
			end = len(wave.Samples)
		}
		speech := rms(wave.Samples[off:end]) >= d.threshold
		t := float64(off) / float64(wave.SampleRate)
		switch {
		case speech && !open:
			open = true
			start = t
		case !speech && open:
			open = false
			raw = append(raw, types.SpeechInterval{Start: start, End: t})
		}
	}
	if open {
		raw = append(raw, types.SpeechInterval{Start: start, End: wave.Duration()})
	}

	return d.merge(raw), nil
}

// merge bridges short silence gaps and drops too-short speech bursts.
func (d *Detector) merge(raw []types.SpeechInterval) []types.SpeechInterval {
	minSilence := float64(d.minSilenceMs) / 1000
	minSpeech := float64(d.minSpeechMs) / 1000

	var bridged []types.SpeechInterval
	for _, iv := range raw {
		if n := len(bridged); n > 0 && iv.Start-bridged[n-1].End < minSilence {
			bridged[n-1].End = iv.End
			continue
		}
		bridged = append(bridged, iv)
	}

	var out []types.SpeechInterval
	for _, iv := range bridged {
		if iv.End-iv.Start >= minSpeech {
			out = append(out, iv)
		}
	}
	return out
}

// rms returns the root-mean-square energy of normalised samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
