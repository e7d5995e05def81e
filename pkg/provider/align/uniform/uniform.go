// Package uniform provides a model-free aligner that repairs word timings by
// proportional interpolation.
//
// Words with missing or degenerate timing (zero-width, out of segment bounds,
// or regressing behind the previous word) are re-spaced across the segment's
// unclaimed time in proportion to their rune length. Words with sane timings
// are left untouched. This is the fallback behaviour long-form pipelines use
// when no forced-alignment model is available for the detected language:
// never better than a phoneme aligner, but always monotonic and always
// within segment bounds.
package uniform

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/provider/align"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Aligner implements align.Aligner.
var _ align.Aligner = (*Aligner)(nil)

// Aligner implements align.Aligner by proportional interpolation.
// Stateless and safe for concurrent use.
type Aligner struct{}

// New creates a uniform Aligner.
func New() *Aligner { return &Aligner{} }

// Align repairs degenerate word timings segment by segment. The waveform is
// not consulted; interpolation uses segment bounds only.
func (a *Aligner) Align(ctx context.Context, _ []float32, _ int, segments []types.Segment, _ string) ([]types.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]types.Segment, len(segments))
	for i, seg := range segments {
		out[i] = repairSegment(seg)
	}
	return out, nil
}

// repairSegment returns seg with any degenerate word timings re-spaced.
func repairSegment(seg types.Segment) types.Segment {
	if len(seg.Words) == 0 || seg.End <= seg.Start {
		return seg
	}

	words := append([]types.Word(nil), seg.Words...)
	if !needsRepair(words, seg.Start, seg.End) {
		seg.Words = words
		return seg
	}

	// Re-space the whole segment proportionally to rune length. Repairing
	// only the broken words would have to squeeze them between healthy
	// neighbours; uniform re-spacing keeps the result monotonic in all cases.
	total := 0
	for _, w := range words {
		total += max(1, len([]rune(w.Text)))
	}
	span := seg.End - seg.Start
	cursor := seg.Start
	for i := range words {
		frac := float64(max(1, len([]rune(words[i].Text)))) / float64(total)
		words[i].Start = cursor
		cursor += span * frac
		words[i].End = cursor
	}
	// Pin the last word to the segment end to absorb rounding drift.
	words[len(words)-1].End = seg.End

	seg.Words = words
	return seg
}

// needsRepair reports whether any word timing is degenerate: zero/negative
// width, outside segment bounds, or starting before the previous word.
func needsRepair(words []types.Word, start, end float64) bool {
	prev := start
	for _, w := range words {
		if w.End <= w.Start || w.Start < start || w.End > end || w.Start < prev {
			return true
		}
		prev = w.Start
	}
	return false
}
