// Package mock provides a scripted diarize.Diarizer for tests.
package mock

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/provider/diarize"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Diarizer implements diarize.Diarizer.
var _ diarize.Diarizer = (*Diarizer)(nil)

// Diarizer labels every segment with a fixed speaker (or fails with Err).
type Diarizer struct {
	Speaker string
	Err     error
}

// Assign returns copies of the segments labelled with the configured speaker.
func (d *Diarizer) Assign(ctx context.Context, _ *types.Waveform, segments []types.Segment) ([]types.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	out := make([]types.Segment, len(segments))
	copy(out, segments)
	for i := range out {
		out[i].SpeakerID = d.Speaker
	}
	return out, nil
}
