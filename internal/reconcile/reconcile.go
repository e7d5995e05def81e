// Package reconcile merges per-chunk transcripts into one monotonic timeline.
//
// Adjacent chunks share overlap audio, so the same speech is transcribed
// twice near every boundary. Naive concatenation duplicates those words;
// cutting at the overlap midpoint truncates words mid-utterance whenever the
// boundary missed a silence. The merge instead identifies duplicate word
// pairs inside each overlap window, keeps the better-contextualised copy of
// each pair, and rebuilds segments so the result covers the whole media with
// no overlap between segments.
package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/longscribe/pkg/types"
)

// timeEps absorbs float rounding when comparing boundary timestamps.
const timeEps = 1e-6

// ChunkTranscript pairs a chunk descriptor with the segments recognised from
// it. Timestamps are absolute media time.
type ChunkTranscript struct {
	Chunk    types.Chunk
	Segments []types.Segment
}

// wordRef addresses one word inside the input transcripts.
type wordRef struct {
	chunk, seg, word int
}

// Merge reconciles the per-chunk transcripts into one timeline.
//
// Failed chunks are simply absent from the input; their time range stays
// uncovered. The returned timeline satisfies the ordering invariants
// (non-overlapping segments, non-decreasing word times within a segment) or
// Merge returns ReconciliationError, which indicates an internal bug rather
// than bad input.
func Merge(transcripts []ChunkTranscript) (*types.Timeline, error) {
	ts := append([]ChunkTranscript(nil), transcripts...)
	slices.SortStableFunc(ts, func(a, b ChunkTranscript) int {
		return a.Chunk.Index - b.Chunk.Index
	})

	dropped := findDuplicates(ts)
	segments := rebuild(ts, dropped)
	segments = mergeAdjacent(segments)

	tl := &types.Timeline{Segments: segments}
	if err := validate(tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// findDuplicates scans every adjacent chunk pair's overlap window and returns
// the set of word copies to drop.
func findDuplicates(ts []ChunkTranscript) map[wordRef]bool {
	dropped := make(map[wordRef]bool)
	for p := 0; p+1 < len(ts); p++ {
		cur, next := ts[p], ts[p+1]
		if next.Chunk.Index != cur.Chunk.Index+1 {
			continue // the chunk in between failed; no shared audio to dedup
		}
		overlap := cur.Chunk.OverlapWithNext
		if overlap <= 0 {
			continue
		}
		winEnd := cur.Chunk.End
		winStart := winEnd - overlap

		aRefs := windowWords(ts, p, winStart, winEnd)
		bRefs := windowWords(ts, p+1, winStart, winEnd)

		matched := make(map[wordRef]bool)
		for _, bRef := range bRefs {
			b := wordAt(ts, bRef)
			for _, aRef := range aRefs {
				if matched[aRef] || dropped[aRef] {
					continue
				}
				a := wordAt(ts, aRef)
				if !sameWord(a, b) {
					continue
				}
				matched[aRef] = true
				if keepEarlierCopy(a, b, winStart, winEnd) {
					dropped[bRef] = true
				} else {
					dropped[aRef] = true
				}
				break
			}
		}
	}
	return dropped
}

// windowWords returns refs to all words of transcript ts[idx] whose span
// intersects [winStart, winEnd], in time order. Intersection rather than
// containment: a duplicate straddling the window edge must still be caught.
func windowWords(ts []ChunkTranscript, idx int, winStart, winEnd float64) []wordRef {
	var refs []wordRef
	for si, seg := range ts[idx].Segments {
		for wi, w := range seg.Words {
			if w.End >= winStart-timeEps && w.Start <= winEnd+timeEps {
				refs = append(refs, wordRef{chunk: idx, seg: si, word: wi})
			}
		}
	}
	slices.SortStableFunc(refs, func(a, b wordRef) int {
		da := wordAt(ts, a).Start - wordAt(ts, b).Start
		switch {
		case da < 0:
			return -1
		case da > 0:
			return 1
		default:
			return 0
		}
	})
	return refs
}

func wordAt(ts []ChunkTranscript, r wordRef) types.Word {
	return ts[r.chunk].Segments[r.seg].Words[r.word]
}

// rebuild filters dropped words out of every segment, recomputing segment
// bounds and text where words were removed. Segments left with no words are
// discarded; segments that never had word timing pass through unchanged.
func rebuild(ts []ChunkTranscript, dropped map[wordRef]bool) []types.Segment {
	var out []types.Segment
	for ci, t := range ts {
		for si, seg := range t.Segments {
			if len(seg.Words) == 0 {
				out = append(out, seg)
				continue
			}
			kept := make([]types.Word, 0, len(seg.Words))
			for wi, w := range seg.Words {
				if !dropped[wordRef{chunk: ci, seg: si, word: wi}] {
					kept = append(kept, w)
				}
			}
			if len(kept) == 0 {
				continue
			}
			if len(kept) != len(seg.Words) {
				seg.Words = kept
				seg.Start = kept[0].Start
				seg.End = kept[len(kept)-1].End
				seg.Text = joinWords(kept)
			}
			out = append(out, seg)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return a.ChunkIndex - b.ChunkIndex
		}
	})
	return out
}

// mergeAdjacent combines segments that overlap in time or that reconciliation
// left back-to-back across a chunk boundary. Overlapping segments must merge
// for the timeline invariant to hold; zero-gap merging is limited to segments
// from different chunks so a chunk's own phrasing is preserved.
func mergeAdjacent(segments []types.Segment) []types.Segment {
	var out []types.Segment
	for _, seg := range segments {
		if len(out) == 0 {
			out = append(out, seg)
			continue
		}
		prev := &out[len(out)-1]
		overlapping := seg.Start < prev.End-timeEps
		contiguous := seg.Start <= prev.End+timeEps && seg.ChunkIndex != prev.ChunkIndex &&
			seg.SpeakerID == prev.SpeakerID
		if !overlapping && !contiguous {
			out = append(out, seg)
			continue
		}

		prev.Words = append(prev.Words, seg.Words...)
		slices.SortStableFunc(prev.Words, func(a, b types.Word) int {
			switch {
			case a.Start < b.Start:
				return -1
			case a.Start > b.Start:
				return 1
			default:
				return 0
			}
		})
		if seg.End > prev.End {
			prev.End = seg.End
		}
		if len(prev.Words) > 0 {
			prev.Text = joinWords(prev.Words)
		} else {
			prev.Text = strings.TrimSpace(prev.Text + " " + seg.Text)
		}
		if prev.SpeakerID == "" {
			prev.SpeakerID = seg.SpeakerID
		}
	}
	return out
}

func joinWords(words []types.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strings.TrimSpace(w.Text)
	}
	return strings.Join(parts, " ")
}

// validate checks the timeline ordering invariants. A failure here means the
// merge itself is broken; valid input can never trigger it.
func validate(tl *types.Timeline) error {
	for i, seg := range tl.Segments {
		if i > 0 {
			if prev := tl.Segments[i-1]; prev.End > seg.Start+timeEps {
				return &types.ReconciliationError{
					Reason: fmt.Sprintf("segment %d ends at %.3f after segment %d starts at %.3f", i-1, prev.End, i, seg.Start),
				}
			}
		}
		for j := 1; j < len(seg.Words); j++ {
			if seg.Words[j].Start < seg.Words[j-1].Start-timeEps {
				return &types.ReconciliationError{
					Reason: fmt.Sprintf("segment %d word %d regresses to %.3f", i, j, seg.Words[j].Start),
				}
			}
		}
	}
	return nil
}
