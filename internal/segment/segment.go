// Package segment plans how a long waveform is split into overlapping chunks
// for recognition.
//
// A strategy proposes interior cut points; the planner turns them into chunk
// descriptors that are contiguous over [0, duration], extends each chunk past
// the next one's start by the overlap, and guarantees the last chunk ends
// exactly at the media duration. All strategies share those invariants, so
// the reconciler downstream can rely on them regardless of how the cuts were
// chosen.
package segment

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/MrWong99/longscribe/pkg/types"
)

const (
	// DefaultWindowSec is the target chunk length.
	DefaultWindowSec = 30
	// DefaultOverlapSec is the audio shared between adjacent chunks.
	DefaultOverlapSec = 10

	// minChunkSec suppresses cut points that would leave a sliver chunk at
	// the end of the media.
	minChunkSec = 0.5
)

// Params tunes chunk planning. Zero values fall back to the defaults.
type Params struct {
	// WindowSec is the target chunk duration in seconds.
	WindowSec float64
	// OverlapSec is the duration each chunk extends past the next chunk's
	// start.
	OverlapSec float64
}

func (p Params) withDefaults() Params {
	if p.WindowSec <= 0 {
		p.WindowSec = DefaultWindowSec
	}
	if p.OverlapSec <= 0 {
		p.OverlapSec = DefaultOverlapSec
	}
	return p
}

// Strategy proposes where to cut a waveform. The set of strategies is closed:
// selection is by variant, not by string comparison scattered through the
// pipeline.
type Strategy interface {
	// Name identifies the strategy in logs and job metadata.
	Name() string

	// cutPoints returns proposed cut points strictly inside (0, duration).
	// The planner sanitises the result, so strategies may return unsorted or
	// slightly out-of-range points.
	cutPoints(ctx context.Context, wave *types.Waveform, window float64) ([]float64, error)
}

// Plan splits the waveform into chunk descriptors using the given strategy.
//
// Guarantees for non-empty input: at least one chunk, chunks contiguous over
// [0, duration] with no gaps, the last chunk ending exactly at the duration,
// and ascending start times. Returns InvalidInputError when the waveform is
// empty or has non-positive duration.
func Plan(ctx context.Context, wave *types.Waveform, s Strategy, p Params) ([]types.Chunk, error) {
	if wave == nil || wave.Duration() <= 0 {
		return nil, &types.InvalidInputError{Reason: "media has no audio duration"}
	}
	duration := wave.Duration()
	p = p.withDefaults()

	if auto, ok := s.(*AutoStrategy); ok {
		s = auto.Resolve(duration, p)
	}

	// Short media fits one recognition window; no cuts, no overlap.
	if duration <= p.WindowSec {
		return []types.Chunk{{Index: 0, Start: 0, End: duration}}, nil
	}

	cuts, err := s.cutPoints(ctx, wave, p.WindowSec)
	if err != nil {
		return nil, fmt.Errorf("segment: %s strategy: %w", s.Name(), err)
	}
	cuts = sanitizeCuts(cuts, duration)

	bounds := append([]float64{0}, cuts...)
	bounds = append(bounds, duration)

	chunks := make([]types.Chunk, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		start, next := bounds[i], bounds[i+1]
		chunk := types.Chunk{Index: i, Start: start, End: next}
		if i < len(bounds)-2 {
			end := math.Min(next+p.OverlapSec, duration)
			chunk.End = end
			chunk.OverlapWithNext = end - next
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// sanitizeCuts sorts, deduplicates, and clamps proposed cut points so every
// resulting chunk is non-degenerate.
func sanitizeCuts(cuts []float64, duration float64) []float64 {
	slices.Sort(cuts)
	out := cuts[:0]
	prev := 0.0
	for _, c := range cuts {
		if c-prev < minChunkSec || c > duration-minChunkSec {
			continue
		}
		out = append(out, c)
		prev = c
	}
	return out
}
