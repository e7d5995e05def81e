// Package types defines the shared data model used across all longscribe packages.
//
// These types form the lingua franca between the media normalizer, the
// segmenter, the recognition providers, the reconciler, and the output
// encoders. They are intentionally minimal — each package defines its own
// domain types, but cross-cutting data structures live here to avoid circular
// imports.
package types

import "time"

// Waveform is an immutable buffer of mono audio samples at a fixed rate.
// It is produced once by the media normalizer and read-only for every
// downstream consumer; no pipeline stage mutates Samples after construction.
type Waveform struct {
	// Samples holds normalised mono PCM in the range [-1.0, 1.0].
	Samples []float32

	// SampleRate in Hz. The pipeline operates at 16 kHz throughout.
	SampleRate int
}

// Duration returns the total length of the waveform in seconds.
func (w *Waveform) Duration() float64 {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Slice returns the samples covering [startSec, endSec), clamped to the
// waveform bounds. The returned slice aliases the underlying buffer and must
// be treated as read-only.
func (w *Waveform) Slice(startSec, endSec float64) []float32 {
	if w == nil || w.SampleRate <= 0 {
		return nil
	}
	lo := int(startSec * float64(w.SampleRate))
	hi := int(endSec * float64(w.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(w.Samples) {
		hi = len(w.Samples)
	}
	if lo >= hi {
		return nil
	}
	return w.Samples[lo:hi]
}

// SpeechInterval is a detected region of speech within a waveform,
// expressed in seconds from the start of the media.
type SpeechInterval struct {
	Start float64
	End   float64
}

// Chunk describes one bounded time slice of the input media that is
// transcribed independently. Chunks are produced by the segmenter in
// ascending Start order; together they cover [0, duration] with no gaps.
type Chunk struct {
	// Index is the zero-based position of the chunk in processing order.
	Index int

	// Start and End bound the chunk in absolute media time (seconds).
	// Invariant: Start < End.
	Start float64
	End   float64

	// OverlapWithNext is the duration (seconds) shared with the following
	// chunk. Zero for the final chunk.
	OverlapWithNext float64
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 { return c.End - c.Start }

// Word is a single transcribed word with absolute timing.
type Word struct {
	// Text is the word as transcribed, including any attached punctuation.
	Text string `json:"text"`

	// Start and End are absolute media timestamps in seconds.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Confidence is the recognition score in [0, 1]. Zero when the engine
	// does not report per-word confidence.
	Confidence float64 `json:"confidence"`
}

// Segment is a phrase-level span of the transcript. Words are ordered by
// Start; Text is the space-joined word text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`

	// SpeakerID labels the speaker when diarization ran (e.g. "SPEAKER_00").
	// Empty otherwise.
	SpeakerID string `json:"speaker_id,omitempty"`

	// ChunkIndex records which chunk produced this segment, for traceability
	// through the merge. After reconciliation it names the chunk that
	// contributed the segment's first kept word.
	ChunkIndex int `json:"chunk_index"`
}

// Timeline is the reconciled, monotonic sequence of segments spanning the
// whole media. Invariant: for i < j, Segments[i].End <= Segments[j].Start,
// and word start times within a segment are non-decreasing.
type Timeline struct {
	Segments []Segment
}

// Words returns all words of the timeline in order. The slice is freshly
// allocated; mutating it does not affect the timeline.
func (t *Timeline) Words() []Word {
	var out []Word
	for _, seg := range t.Segments {
		out = append(out, seg.Words...)
	}
	return out
}

// Span returns the time range covered by the timeline.
func (t *Timeline) Span() time.Duration {
	if len(t.Segments) == 0 {
		return 0
	}
	last := t.Segments[len(t.Segments)-1]
	return time.Duration(last.End * float64(time.Second))
}
