package whisper

import (
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/longscribe/pkg/types"
)

// wordsFromTokens groups whisper.cpp subword tokens into words with timing.
// Whisper marks word starts with a leading space on the first token of each
// word; special tokens (timestamp and control markers, rendered as "[_..._]")
// carry no text and are skipped. A word's confidence is the mean probability
// of its tokens.
func wordsFromTokens(tokens []whisperlib.Token) []types.Word {
	var (
		words []types.Word
		cur   *wordBuilder
	)

	flush := func() {
		if cur == nil {
			return
		}
		if w, ok := cur.build(); ok {
			words = append(words, w)
		}
		cur = nil
	}

	for _, tok := range tokens {
		if isSpecialToken(tok.Text) {
			continue
		}
		startsWord := strings.HasPrefix(tok.Text, " ") || cur == nil
		if startsWord {
			flush()
			cur = &wordBuilder{start: tok.Start.Seconds()}
		}
		cur.append(tok)
	}
	flush()

	return words
}

// isSpecialToken reports whether text is a whisper control token such as
// "[_BEG_]" or a timestamp marker.
func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}

// wordBuilder accumulates the tokens of one word.
type wordBuilder struct {
	text  strings.Builder
	start float64
	end   float64
	pSum  float64
	n     int
}

func (b *wordBuilder) append(tok whisperlib.Token) {
	b.text.WriteString(tok.Text)
	if end := tok.End.Seconds(); end > b.end {
		b.end = end
	}
	b.pSum += float64(tok.P)
	b.n++
}

func (b *wordBuilder) build() (types.Word, bool) {
	text := strings.TrimSpace(b.text.String())
	if text == "" || b.n == 0 {
		return types.Word{}, false
	}
	return types.Word{
		Text:       text,
		Start:      b.start,
		End:        b.end,
		Confidence: b.pSum / float64(b.n),
	}, true
}
