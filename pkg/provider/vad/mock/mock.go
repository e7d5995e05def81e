// Package mock provides a scripted vad.Detector for tests.
package mock

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Detector implements vad.Detector.
var _ vad.Detector = (*Detector)(nil)

// Detector returns fixed intervals (or a fixed error) from every Detect call.
type Detector struct {
	Intervals []types.SpeechInterval
	Err       error
}

// Detect returns the configured intervals or error.
func (d *Detector) Detect(ctx context.Context, _ *types.Waveform) ([]types.SpeechInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return append([]types.SpeechInterval(nil), d.Intervals...), nil
}
