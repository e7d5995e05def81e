// Package align defines the Aligner interface for word-timestamp refinement
// backends.
//
// Recognition engines produce word timings of varying quality: token-level
// timestamps from whisper.cpp are decoder estimates, and some remote engines
// return segment timing only. An aligner is an optional pipeline stage that
// sharpens or fills in word timings after recognition, before the chunk
// results reach the reconciler. Better word timings directly improve the
// boundary-duplicate matching in the overlap windows.
package align

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/types"
)

// Aligner refines the word-level timestamps of recognised segments.
//
// Implementations must be safe for concurrent use and must not mutate the
// input slice; they return refined copies. Timestamps in segments are
// relative to the supplied waveform slice.
type Aligner interface {
	// Align returns segments with refined word timings. lang is the BCP-47
	// recognition language; aligners that are language-specific may return
	// the input unchanged for unsupported languages.
	Align(ctx context.Context, samples []float32, sampleRate int, segments []types.Segment, lang string) ([]types.Segment, error)
}
