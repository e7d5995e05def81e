package media

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/MrWong99/longscribe/pkg/types"
)

// DecodeWAV parses a PCM WAV file into a normalised float32 waveform.
// Supported encodings are 16-bit signed integer and 32-bit float, mono;
// that covers everything Normalize emits plus pre-converted inputs.
func DecodeWAV(data []byte) (*types.Waveform, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("media: not a RIFF/WAVE file")
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bits       uint16
		pcm        []byte
	)

	// Walk the chunk list; "fmt " and "data" are the only ones we need.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, fmt.Errorf("media: truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("media: short fmt chunk (%d bytes)", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if pcm == nil {
		return nil, fmt.Errorf("media: missing data chunk")
	}
	if channels != 1 {
		return nil, fmt.Errorf("media: %d channels, want mono", channels)
	}

	var samples []float32
	switch {
	case format == 1 && bits == 16:
		samples = make([]float32, len(pcm)/2)
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
			samples[i] = float32(v) / 32768
		}
	case format == 3 && bits == 32:
		samples = make([]float32, len(pcm)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4 : i*4+4]))
		}
	default:
		return nil, fmt.Errorf("media: unsupported encoding (format %d, %d bit)", format, bits)
	}

	return &types.Waveform{Samples: samples, SampleRate: int(sampleRate)}, nil
}
