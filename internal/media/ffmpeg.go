// Package media loads arbitrary audio and video files into normalised
// waveforms via ffmpeg.
//
// Recognition engines expect mono 16 kHz float32 PCM. Rather than linking
// codec libraries, the package shells out to ffmpeg/ffprobe the way most
// transcription tooling does: Probe reads container metadata, Normalize
// transcodes any supported input to a canonical WAV, and Load combines both
// into an in-memory waveform.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/longscribe/pkg/types"
)

// TargetSampleRate is the sample rate every normalised waveform uses.
const TargetSampleRate = 16000

// Option is a functional option for configuring a Loader.
type Option func(*Loader)

// WithBinaries overrides the ffmpeg and ffprobe executable paths. Defaults
// to resolving "ffmpeg" and "ffprobe" from PATH.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(l *Loader) {
		l.ffmpegBin = ffmpeg
		l.ffprobeBin = ffprobe
	}
}

// WithSpeechFilters toggles the speech-conditioning filter chain (highpass at
// 100 Hz, lowpass at 10 kHz, dynamic loudness normalisation) applied during
// Normalize. Enabled by default.
func WithSpeechFilters(enabled bool) Option {
	return func(l *Loader) { l.speechFilters = enabled }
}

// WithTempDir sets the directory for intermediate WAV files. Defaults to the
// system temp dir.
func WithTempDir(dir string) Option {
	return func(l *Loader) { l.tempDir = dir }
}

// Loader probes and normalises media files through ffmpeg.
// Safe for concurrent use.
type Loader struct {
	ffmpegBin     string
	ffprobeBin    string
	speechFilters bool
	tempDir       string
	log           *slog.Logger
}

// NewLoader creates a Loader with the given options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		ffmpegBin:     "ffmpeg",
		ffprobeBin:    "ffprobe",
		speechFilters: true,
		log:           slog.Default().With("component", "media"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Info describes a probed media file.
type Info struct {
	// Duration is the container duration in seconds.
	Duration float64 `json:"duration_sec"`
	// Format is the ffprobe container format name, e.g. "mov,mp4,m4a,3gp,3g2,mj2".
	Format string `json:"format"`
	// HasAudio reports whether at least one audio stream is present.
	HasAudio bool `json:"has_audio"`
	// AudioCodec is the codec of the first audio stream, e.g. "aac".
	AudioCodec string `json:"audio_codec,omitempty"`
	// VideoCodec is the codec of the first video stream, empty for audio-only
	// files.
	VideoCodec string `json:"video_codec,omitempty"`
	// Width and Height are the dimensions of the first video stream.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// SizeBytes is the file size on disk.
	SizeBytes int64 `json:"size_bytes"`
}

// ffprobe -print_format json layout, trimmed to the fields Probe needs.
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Duration  string `json:"duration"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe inspects a media file with ffprobe. It returns UnsupportedMediaError
// when the file is missing, unreadable, or carries no audio stream.
func (l *Loader) Probe(ctx context.Context, path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &types.UnsupportedMediaError{Path: path, Err: err}
	}

	cmd := exec.CommandContext(ctx, l.ffprobeBin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, &types.UnsupportedMediaError{Path: path, Err: fmt.Errorf("ffprobe: %w: %s", err, exitDetail(err))}
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, &types.UnsupportedMediaError{Path: path, Err: fmt.Errorf("ffprobe output: %w", err)}
	}

	info := &Info{Format: probed.Format.FormatName, SizeBytes: stat.Size()}
	info.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	for _, s := range probed.Streams {
		switch s.CodecType {
		case "audio":
			if !info.HasAudio {
				info.AudioCodec = s.CodecName
			}
			info.HasAudio = true
			if info.Duration == 0 {
				info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
				info.Width, info.Height = s.Width, s.Height
			}
		}
	}
	if !info.HasAudio {
		return nil, &types.UnsupportedMediaError{Path: path, Err: fmt.Errorf("no audio stream in %q", probed.Format.FormatName)}
	}
	return info, nil
}

// Normalize transcodes src into a mono 16 kHz signed 16-bit WAV at dest.
func (l *Loader) Normalize(ctx context.Context, src, dest string) error {
	args := normalizeArgs(src, dest, l.speechFilters)
	cmd := exec.CommandContext(ctx, l.ffmpegBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &types.UnsupportedMediaError{
			Path: src,
			Err:  fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out))),
		}
	}
	return nil
}

// normalizeArgs builds the ffmpeg argument list for Normalize. Split out so
// the exact invocation is testable without running ffmpeg.
func normalizeArgs(src, dest string, speechFilters bool) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(TargetSampleRate),
		"-c:a", "pcm_s16le",
	}
	if speechFilters {
		args = append(args, "-af", "highpass=f=100,lowpass=f=10000,dynaudnorm")
	}
	return append(args, dest)
}

// Load probes src, normalises it to a temporary WAV, and decodes it into an
// in-memory waveform. The temporary file is removed before Load returns.
func (l *Loader) Load(ctx context.Context, src string) (*types.Waveform, *Info, error) {
	info, err := l.Probe(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	tmp, err := os.CreateTemp(l.tempDir, "longscribe-*.wav")
	if err != nil {
		return nil, nil, fmt.Errorf("media: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	started := time.Now()
	if err := l.Normalize(ctx, src, tmpPath); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, nil, fmt.Errorf("media: read normalised audio: %w", err)
	}
	wave, err := DecodeWAV(data)
	if err != nil {
		return nil, nil, &types.UnsupportedMediaError{Path: src, Err: err}
	}

	l.log.Debug("media normalised",
		"src", filepath.Base(src),
		"duration_sec", wave.Duration(),
		"elapsed", time.Since(started))
	return wave, info, nil
}

// exitDetail extracts captured stderr from an exec.ExitError, if any.
func exitDetail(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return strings.TrimSpace(string(ee.Stderr))
	}
	return ""
}
