package reconcile

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"github.com/MrWong99/longscribe/pkg/types"
)

const (
	// similarityThreshold is the minimum Jaro-Winkler score for two word
	// texts to count as the same spoken word. Engines disagree on casing,
	// punctuation, and the odd character, so exact equality is too strict.
	similarityThreshold = 0.85

	// maxMidpointDistSec is how far apart the two copies' midpoints may sit.
	// Engines time the same word slightly differently across chunks, but a
	// repeated word ("the ... the") is further apart than this.
	maxMidpointDistSec = 0.75

	// edgeContextFrac marks the fraction of the overlap window considered
	// low-context: the trailing part for the earlier chunk and the leading
	// part for the later one. A copy transcribed near its chunk's audio edge
	// had less surrounding speech to condition on.
	edgeContextFrac = 0.2
)

// normalizeWord folds case and strips surrounding punctuation so "Hello," and
// "hello" compare as the same word.
func normalizeWord(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.ToLower(s)
}

func midpoint(w types.Word) float64 {
	return (w.Start + w.End) / 2
}

// sameWord reports whether a and b are plausibly the same spoken word
// transcribed twice: similar text and nearly coincident timing.
func sameWord(a, b types.Word) bool {
	na, nb := normalizeWord(a.Text), normalizeWord(b.Text)
	if na == "" || nb == "" {
		return false
	}
	if na != nb && matchr.JaroWinkler(na, nb, false) < similarityThreshold {
		return false
	}
	d := midpoint(a) - midpoint(b)
	if d < 0 {
		d = -d
	}
	return d <= maxMidpointDistSec
}

// keepEarlierCopy decides which duplicate survives: a comes from the earlier
// chunk, b from the later one, and [winStart, winEnd] is their shared overlap
// window. Preference order: the copy with more surrounding context, then the
// higher-confidence copy, then the earlier chunk's copy. The decision is a
// pure function of its inputs, so reconciliation is reproducible.
func keepEarlierCopy(a, b types.Word, winStart, winEnd float64) bool {
	edge := (winEnd - winStart) * edgeContextFrac
	aLowContext := midpoint(a) >= winEnd-edge   // at the tail of the earlier chunk's audio
	bLowContext := midpoint(b) <= winStart+edge // at the head of the later chunk's audio

	if aLowContext != bLowContext {
		return bLowContext
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return true
}
