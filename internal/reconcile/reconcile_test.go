package reconcile

import (
	"reflect"
	"testing"

	"github.com/MrWong99/longscribe/pkg/types"
)

func word(text string, start, end, conf float64) types.Word {
	return types.Word{Text: text, Start: start, End: end, Confidence: conf}
}

// seg builds a segment spanning its words.
func seg(chunkIdx int, words ...types.Word) types.Segment {
	s := types.Segment{
		ChunkIndex: chunkIdx,
		Start:      words[0].Start,
		End:        words[len(words)-1].End,
		Words:      words,
	}
	s.Text = joinWords(words)
	return s
}

func TestMerge_BoundaryDuplicate(t *testing.T) {
	t.Parallel()

	// Two chunks sharing [25, 30]. Both transcribed "world" at the boundary;
	// chunk 0's copy sits at the very end of its audio, so chunk 1's copy,
	// which has trailing context, must win.
	in := []ChunkTranscript{
		{
			Chunk: types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 5},
			Segments: []types.Segment{
				seg(0, word("hello", 28.0, 28.5, 0.9), word("world", 29.8, 30.1, 0.9)),
			},
		},
		{
			Chunk: types.Chunk{Index: 1, Start: 25, End: 55},
			Segments: []types.Segment{
				seg(1, word("world", 29.9, 30.2, 0.9), word("again", 30.4, 31.0, 0.9)),
			},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	var worlds []types.Word
	for _, w := range tl.Words() {
		if w.Text == "world" {
			worlds = append(worlds, w)
		}
	}
	if len(worlds) != 1 {
		t.Fatalf("got %d copies of %q, want exactly 1: %+v", len(worlds), "world", worlds)
	}
	if worlds[0].Start != 29.9 {
		t.Errorf("kept copy starts at %.2f, want 29.9 (later chunk has more context)", worlds[0].Start)
	}
	if got := len(tl.Words()); got != 3 {
		t.Errorf("timeline has %d words, want 3: %+v", got, tl.Words())
	}
}

func TestMerge_NoDuplicationProperty(t *testing.T) {
	t.Parallel()

	// Identical synthetic word injected into both chunks' overlap windows.
	dup := word("checkpoint", 27.0, 27.5, 0.8)
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 5},
			Segments: []types.Segment{seg(0, word("alpha", 10, 10.5, 0.9), dup)},
		},
		{
			Chunk:    types.Chunk{Index: 1, Start: 25, End: 55},
			Segments: []types.Segment{seg(1, dup, word("omega", 40, 40.5, 0.9))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	count := 0
	for _, w := range tl.Words() {
		if w.Text == "checkpoint" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d copies of the injected word, want exactly 1", count)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	t.Parallel()

	in := []ChunkTranscript{
		{
			Chunk: types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 10},
			Segments: []types.Segment{
				seg(0, word("one", 21, 21.4, 0.7), word("two", 22, 22.4, 0.7), word("three", 23, 23.4, 0.7)),
			},
		},
		{
			Chunk: types.Chunk{Index: 1, Start: 20, End: 55},
			Segments: []types.Segment{
				seg(1, word("one", 21.1, 21.5, 0.7), word("two", 22.1, 22.5, 0.7), word("three", 23.1, 23.5, 0.7)),
			},
		},
	}

	first, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Merge(in)
		if err != nil {
			t.Fatalf("Merge (run %d): %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestMerge_ConfidenceTieBreak(t *testing.T) {
	t.Parallel()

	// Both copies sit mid-window with full context on each side, so the
	// higher-confidence copy must win.
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 10},
			Segments: []types.Segment{seg(0, word("middle", 24.8, 25.2, 0.6))},
		},
		{
			Chunk:    types.Chunk{Index: 1, Start: 20, End: 50},
			Segments: []types.Segment{seg(1, word("middle", 24.9, 25.3, 0.95))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	words := tl.Words()
	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	if words[0].Confidence != 0.95 {
		t.Errorf("kept confidence %.2f, want the 0.95 copy", words[0].Confidence)
	}
}

func TestMerge_ChunkOrderTieBreak(t *testing.T) {
	t.Parallel()

	// Identical context position and identical confidence: the earlier
	// chunk's copy is kept, deterministically.
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 10},
			Segments: []types.Segment{seg(0, word("tie", 24.9, 25.1, 0.8))},
		},
		{
			Chunk:    types.Chunk{Index: 1, Start: 20, End: 50},
			Segments: []types.Segment{seg(1, word("tie", 24.9, 25.1, 0.8))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	words := tl.Words()
	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	if len(tl.Segments) != 1 || tl.Segments[0].ChunkIndex != 0 {
		t.Errorf("kept copy from chunk %d, want earlier chunk 0", tl.Segments[0].ChunkIndex)
	}
}

func TestMerge_FuzzyTextStillMatches(t *testing.T) {
	t.Parallel()

	// Same word with punctuation and casing differences across chunks.
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 10},
			Segments: []types.Segment{seg(0, word("Reconciliation,", 24.8, 25.4, 0.9))},
		},
		{
			Chunk:    types.Chunk{Index: 1, Start: 20, End: 50},
			Segments: []types.Segment{seg(1, word("reconciliation", 24.9, 25.5, 0.7))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := len(tl.Words()); got != 1 {
		t.Errorf("got %d words, want 1 (case/punctuation must not defeat matching)", got)
	}
}

func TestMerge_RepeatedWordIsNotDeduplicated(t *testing.T) {
	t.Parallel()

	// Genuinely repeated speech ("the ... the") sits further apart than the
	// midpoint tolerance and must survive as two words.
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 30, OverlapWithNext: 10},
			Segments: []types.Segment{seg(0, word("the", 22.0, 22.3, 0.9))},
		},
		{
			Chunk:    types.Chunk{Index: 1, Start: 20, End: 50},
			Segments: []types.Segment{seg(1, word("the", 26.0, 26.3, 0.9))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := len(tl.Words()); got != 2 {
		t.Errorf("got %d words, want 2 (distinct repetitions)", got)
	}
}

func TestMerge_SkipsDedupAcrossFailedChunk(t *testing.T) {
	t.Parallel()

	// Chunk 1 failed, so chunks 0 and 2 are adjacent in the input but share
	// no audio; their similar words must both survive.
	in := []ChunkTranscript{
		{
			Chunk:    types.Chunk{Index: 0, Start: 0, End: 40, OverlapWithNext: 10},
			Segments: []types.Segment{seg(0, word("report", 35, 35.5, 0.9))},
		},
		{
			Chunk:    types.Chunk{Index: 2, Start: 60, End: 90},
			Segments: []types.Segment{seg(2, word("report", 65, 65.5, 0.9))},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := len(tl.Words()); got != 2 {
		t.Errorf("got %d words, want 2 (no shared audio between surviving chunks)", got)
	}
}

func TestMerge_MonotonicTimeline(t *testing.T) {
	t.Parallel()

	in := []ChunkTranscript{
		{
			Chunk: types.Chunk{Index: 0, Start: 0, End: 40, OverlapWithNext: 10},
			Segments: []types.Segment{
				seg(0, word("first", 5, 5.5, 0.9), word("phrase", 6, 6.5, 0.9)),
				seg(0, word("crossing", 34, 34.5, 0.9), word("over", 35, 35.5, 0.9)),
			},
		},
		{
			Chunk: types.Chunk{Index: 1, Start: 30, End: 70},
			Segments: []types.Segment{
				seg(1, word("crossing", 34.1, 34.6, 0.9), word("over", 35.1, 35.6, 0.9), word("here", 36, 36.5, 0.9)),
				seg(1, word("final", 60, 60.5, 0.9)),
			},
		},
	}

	tl, err := Merge(in)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i := 1; i < len(tl.Segments); i++ {
		if tl.Segments[i-1].End > tl.Segments[i].Start+timeEps {
			t.Errorf("segment %d end %.3f overlaps segment %d start %.3f",
				i-1, tl.Segments[i-1].End, i, tl.Segments[i].Start)
		}
	}
	words := tl.Words()
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].Start-timeEps {
			t.Errorf("word %d (%q) regresses: %.3f after %.3f", i, words[i].Text, words[i].Start, words[i-1].Start)
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()

	tl, err := Merge(nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(tl.Segments) != 0 {
		t.Errorf("got %d segments, want 0", len(tl.Segments))
	}
}
