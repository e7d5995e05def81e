// Package encode renders a reconciled timeline into the four output formats:
// structured segments, word-level subtitle captions, phrase-level subtitle
// captions, and plain text. All encoders are pure functions of the timeline,
// so re-encoding the same timeline is byte-identical.
package encode

import (
	"fmt"
	"strings"

	"github.com/MrWong99/longscribe/pkg/types"
)

// Outputs bundles all four renderings of one timeline.
type Outputs struct {
	// Segments is the structured form, unchanged from the timeline.
	Segments []types.Segment `json:"segments"`
	// WordCaptions is karaoke-style SRT with one cue per word.
	WordCaptions string `json:"word_captions"`
	// PhraseCaptions is conventional SRT with one cue per segment.
	PhraseCaptions string `json:"phrase_captions"`
	// PlainText is the transcript with no timing at all.
	PlainText string `json:"plain_text"`
}

// All encodes the timeline into every format.
func All(tl *types.Timeline) *Outputs {
	return &Outputs{
		Segments:       tl.Segments,
		WordCaptions:   WordCaptions(tl),
		PhraseCaptions: PhraseCaptions(tl),
		PlainText:      PlainText(tl),
	}
}

// WordCaptions renders one SRT cue per word, numbered from 1. Words without
// usable timing (zero-width) are skipped rather than emitted as invalid cues.
func WordCaptions(tl *types.Timeline) string {
	var b strings.Builder
	n := 0
	for _, w := range tl.Words() {
		if w.End <= w.Start {
			continue
		}
		n++
		writeCue(&b, n, w.Start, w.End, strings.TrimSpace(w.Text))
	}
	return b.String()
}

// PhraseCaptions renders one SRT cue per segment. Speaker labels, when
// present, prefix the cue text in the conventional "SPEAKER_00: text" form.
func PhraseCaptions(tl *types.Timeline) string {
	var b strings.Builder
	n := 0
	for _, seg := range tl.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		if seg.SpeakerID != "" {
			text = seg.SpeakerID + ": " + text
		}
		n++
		writeCue(&b, n, seg.Start, seg.End, text)
	}
	return b.String()
}

// PlainText joins the segment texts with single spaces.
func PlainText(tl *types.Timeline) string {
	parts := make([]string, 0, len(tl.Segments))
	for _, seg := range tl.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// writeCue appends one SRT cue block: index, time range, text, blank line.
func writeCue(b *strings.Builder, n int, start, end float64, text string) {
	fmt.Fprintf(b, "%d\n%s --> %s\n%s\n\n", n, FormatTimestamp(start), FormatTimestamp(end), text)
}
