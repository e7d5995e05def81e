// Package vad defines the Detector interface for speech activity detection
// backends.
//
// A detector classifies waveform regions as speech or non-speech. The
// segmenter's VAD strategy consumes the resulting intervals to place chunk
// boundaries inside silence, so that no chunk cut ever lands in the middle
// of a word.
//
// Detection here is a batch operation over a complete waveform, not a
// frame-by-frame stream: long-media transcription has the whole file up
// front, and batch detection lets implementations smooth and merge intervals
// globally before the segmenter sees them.
//
// Implementations must be safe for concurrent use; Detect may be called for
// several jobs at once.
package vad

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/types"
)

// Detector is the abstraction over any speech activity detection backend.
type Detector interface {
	// Detect returns the speech intervals of the waveform in ascending
	// order. Intervals do not overlap. An empty slice means no speech was
	// found; callers fall back to content-unaware chunking in that case.
	Detect(ctx context.Context, wave *types.Waveform) ([]types.SpeechInterval, error)
}
