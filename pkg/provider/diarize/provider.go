// Package diarize defines the Diarizer interface for speaker-attribution
// backends.
//
// Diarization assigns a speaker label to each recognised segment. Labels
// follow the common "SPEAKER_00", "SPEAKER_01", ... convention so downstream
// consumers can rely on a stable format regardless of backend.
package diarize

import (
	"context"
	"fmt"

	"github.com/MrWong99/longscribe/pkg/types"
)

// Label formats a zero-based speaker index as a canonical speaker label.
func Label(index int) string {
	return fmt.Sprintf("SPEAKER_%02d", index)
}

// Diarizer assigns speaker labels to recognised segments.
//
// Implementations must be safe for concurrent use and must not mutate the
// input slice; they return labelled copies. Segment timestamps are relative
// to the supplied waveform.
type Diarizer interface {
	// Assign returns the segments with SpeakerID populated. Segments whose
	// speaker cannot be determined keep an empty SpeakerID.
	Assign(ctx context.Context, wave *types.Waveform, segments []types.Segment) ([]types.Segment, error)
}
