package media

import (
	"encoding/binary"
	"math"
	"slices"
	"strings"
	"testing"
)

// buildWAV assembles a minimal mono WAV file for decoder tests.
func buildWAV(format, bits uint16, sampleRate uint32, pcm []byte) []byte {
	var b []byte
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(36+len(pcm)))
	b = append(b, "WAVE"...)
	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, format)
	b = binary.LittleEndian.AppendUint16(b, 1) // mono
	b = binary.LittleEndian.AppendUint32(b, sampleRate)
	b = binary.LittleEndian.AppendUint32(b, sampleRate*uint32(bits)/8)
	b = binary.LittleEndian.AppendUint16(b, bits/8)
	b = binary.LittleEndian.AppendUint16(b, bits)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(pcm)))
	return append(b, pcm...)
}

func TestDecodeWAV_Int16(t *testing.T) {
	t.Parallel()

	var pcm []byte
	for _, v := range []int16{0, 16384, -16384, 32767} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}

	wave, err := DecodeWAV(buildWAV(1, 16, 16000, pcm))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if wave.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", wave.SampleRate)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768}
	if len(wave.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(wave.Samples), len(want))
	}
	for i, w := range want {
		if math.Abs(float64(wave.Samples[i]-w)) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, wave.Samples[i], w)
		}
	}
}

func TestDecodeWAV_Float32(t *testing.T) {
	t.Parallel()

	want := []float32{0.25, -0.75}
	var pcm []byte
	for _, v := range want {
		pcm = binary.LittleEndian.AppendUint32(pcm, math.Float32bits(v))
	}

	wave, err := DecodeWAV(buildWAV(3, 32, 16000, pcm))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if !slices.Equal(wave.Samples, want) {
		t.Errorf("samples = %v, want %v", wave.Samples, want)
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"not riff", []byte("this is definitely not audio")},
		{"truncated chunk", buildWAV(1, 16, 16000, make([]byte, 64))[:40]},
		{"unsupported encoding", buildWAV(1, 24, 16000, make([]byte, 6))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := DecodeWAV(tc.data); err == nil {
				t.Error("DecodeWAV succeeded, want error")
			}
		})
	}
}

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	args := normalizeArgs("in.mp4", "out.wav", true)

	if args[len(args)-1] != "out.wav" {
		t.Errorf("last arg = %q, want destination", args[len(args)-1])
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-c:a pcm_s16le", "highpass=f=100"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}

	plain := strings.Join(normalizeArgs("in.mp4", "out.wav", false), " ")
	if strings.Contains(plain, "dynaudnorm") {
		t.Errorf("filters disabled but args contain dynaudnorm: %v", plain)
	}
}
