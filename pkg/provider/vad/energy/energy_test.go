package energy_test

import (
	"context"
	"math"
	"testing"

	"github.com/MrWong99/longscribe/pkg/provider/vad/energy"
	"github.com/MrWong99/longscribe/pkg/types"
)

const testRate = 16000

// synthWave builds a waveform from (durationSec, loud) spans: loud spans are
// a 440 Hz tone at amplitude 0.5, quiet spans are all-zero samples.
func synthWave(spans ...struct {
	Dur  float64
	Loud bool
}) *types.Waveform {
	var samples []float32
	for _, sp := range spans {
		n := int(sp.Dur * testRate)
		for i := 0; i < n; i++ {
			var v float32
			if sp.Loud {
				v = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/testRate))
			}
			samples = append(samples, v)
		}
	}
	return &types.Waveform{Samples: samples, SampleRate: testRate}
}

func span(dur float64, loud bool) struct {
	Dur  float64
	Loud bool
} {
	return struct {
		Dur  float64
		Loud bool
	}{dur, loud}
}

func TestDetect_SpeechBetweenSilence(t *testing.T) {
	t.Parallel()

	wave := synthWave(span(1, false), span(2, true), span(1, false))

	d := energy.New()
	intervals, err := d.Detect(context.Background(), wave)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1: %+v", len(intervals), intervals)
	}
	iv := intervals[0]
	if iv.Start < 0.9 || iv.Start > 1.1 {
		t.Errorf("interval start = %.3f, want ~1.0", iv.Start)
	}
	if iv.End < 2.9 || iv.End > 3.1 {
		t.Errorf("interval end = %.3f, want ~3.0", iv.End)
	}
}

func TestDetect_BridgesShortGaps(t *testing.T) {
	t.Parallel()

	// Two speech runs separated by a 50 ms gap; with min-silence 100 ms the
	// gap must be bridged into one interval.
	wave := synthWave(span(1, true), span(0.05, false), span(1, true))

	d := energy.New(energy.WithMinSilenceMs(100))
	intervals, err := d.Detect(context.Background(), wave)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1 (bridged): %+v", len(intervals), intervals)
	}
}

func TestDetect_DropsShortBursts(t *testing.T) {
	t.Parallel()

	// A 100 ms blip is below the 250 ms minimum speech duration.
	wave := synthWave(span(1, false), span(0.1, true), span(1, false))

	d := energy.New(energy.WithMinSilenceMs(50))
	intervals, err := d.Detect(context.Background(), wave)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 0 {
		t.Fatalf("got %d intervals, want 0: %+v", len(intervals), intervals)
	}
}

func TestDetect_EmptyWaveform(t *testing.T) {
	t.Parallel()

	d := energy.New()
	intervals, err := d.Detect(context.Background(), &types.Waveform{SampleRate: testRate})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if intervals != nil {
		t.Errorf("Detect on empty waveform = %+v, want nil", intervals)
	}
}

func TestDetect_AllSpeech(t *testing.T) {
	t.Parallel()

	wave := synthWave(span(3, true))

	d := energy.New()
	intervals, err := d.Detect(context.Background(), wave)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	if intervals[0].Start != 0 {
		t.Errorf("start = %.3f, want 0", intervals[0].Start)
	}
	if got, want := intervals[0].End, wave.Duration(); math.Abs(got-want) > 0.05 {
		t.Errorf("end = %.3f, want %.3f", got, want)
	}
}
