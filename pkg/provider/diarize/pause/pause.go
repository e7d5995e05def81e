// Package pause provides a heuristic diarizer that attributes speaker turns
// from inter-segment pauses.
//
// Conversational turn-taking tends to leave a longer gap between speakers
// than between sentences of the same speaker. The detector starts everything
// as SPEAKER_00 and advances to the next speaker whenever the silence between
// two consecutive segments exceeds the turn gap, wrapping around after the
// configured maximum speaker count. It needs no model and no audio analysis,
// which makes it a usable default for two-party recordings and a poor one for
// overlapping speech.
package pause

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/provider/diarize"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Diarizer implements diarize.Diarizer.
var _ diarize.Diarizer = (*Diarizer)(nil)

const (
	defaultTurnGapSec  = 1.5
	defaultMaxSpeakers = 2
)

// Option is a functional option for configuring a Diarizer.
type Option func(*Diarizer)

// WithTurnGap sets the minimum inter-segment pause in seconds that counts as
// a speaker change. Defaults to 1.5.
func WithTurnGap(sec float64) Option {
	return func(d *Diarizer) { d.turnGap = sec }
}

// WithMaxSpeakers sets the number of speakers to cycle through. Defaults
// to 2.
func WithMaxSpeakers(n int) Option {
	return func(d *Diarizer) { d.maxSpeakers = n }
}

// Diarizer implements diarize.Diarizer using pause heuristics.
// Stateless across calls and safe for concurrent use.
type Diarizer struct {
	turnGap     float64
	maxSpeakers int
}

// New creates a pause Diarizer with the given options.
func New(opts ...Option) *Diarizer {
	d := &Diarizer{
		turnGap:     defaultTurnGapSec,
		maxSpeakers: defaultMaxSpeakers,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Assign labels segments by alternating speakers on long pauses.
func (d *Diarizer) Assign(ctx context.Context, _ *types.Waveform, segments []types.Segment) ([]types.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]types.Segment, len(segments))
	copy(out, segments)

	speaker := 0
	for i := range out {
		if i > 0 && out[i].Start-out[i-1].End >= d.turnGap {
			speaker = (speaker + 1) % max(1, d.maxSpeakers)
		}
		out[i].SpeakerID = diarize.Label(speaker)
	}
	return out, nil
}
