package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/longscribe/internal/config"
	"github.com/MrWong99/longscribe/internal/media"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "longscribe",
	Short:         "Chunked transcription for long media files",
	Long: `longscribe transcribes media of any length by normalising it with ffmpeg,
splitting it into overlapping chunks, recognising each chunk through a
speech engine, and reconciling the chunk boundaries into one transcript
with word-level timestamps.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log verbosity: debug, info, warn, error")
	rootCmd.AddCommand(transcribeCmd, probeCmd)
}

// defaultConfigPath is tried when --config is not given.
const defaultConfigPath = "longscribe.yaml"

// loadConfig resolves the effective configuration: the --config file when
// given, the default file when present, an all-defaults config otherwise.
// The --log-level flag overrides the configured level and the resulting
// logger becomes the slog default.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flagConfig != "":
		cfg, err = config.Load(flagConfig)
	default:
		if _, statErr := os.Stat(defaultConfigPath); statErr == nil {
			cfg, err = config.Load(defaultConfigPath)
		} else {
			cfg = &config.Config{}
			err = config.Validate(cfg)
		}
	}
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = config.LogLevel(flagLogLevel)
		if !level.IsValid() {
			return nil, fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", flagLogLevel)
		}
	}
	slog.SetDefault(newLogger(level))
	return cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newMediaLoader builds the ffmpeg loader from the media section.
func newMediaLoader(cfg config.MediaConfig) *media.Loader {
	var opts []media.Option
	if cfg.FFmpegPath != "" || cfg.FFprobePath != "" {
		ffmpeg, ffprobe := cfg.FFmpegPath, cfg.FFprobePath
		if ffmpeg == "" {
			ffmpeg = "ffmpeg"
		}
		if ffprobe == "" {
			ffprobe = "ffprobe"
		}
		opts = append(opts, media.WithBinaries(ffmpeg, ffprobe))
	}
	if cfg.SpeechFilters != nil {
		opts = append(opts, media.WithSpeechFilters(*cfg.SpeechFilters))
	}
	if cfg.TempDir != "" {
		opts = append(opts, media.WithTempDir(cfg.TempDir))
	}
	return media.NewLoader(opts...)
}
