package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Logging
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	// Engine, including the fallback chain.
	errs = append(errs, validateEngine("engine", &cfg.Engine)...)

	// Chunking
	if cfg.Chunking.Strategy != "" && !cfg.Chunking.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("chunking.strategy %q is invalid; valid values: auto, time, vad, silence", cfg.Chunking.Strategy))
	}
	if cfg.Chunking.WindowSec < 0 {
		errs = append(errs, fmt.Errorf("chunking.window_sec %.2f must not be negative", cfg.Chunking.WindowSec))
	}
	if cfg.Chunking.OverlapSec < 0 {
		errs = append(errs, fmt.Errorf("chunking.overlap_sec %.2f must not be negative", cfg.Chunking.OverlapSec))
	}
	if cfg.Chunking.WindowSec > 0 && cfg.Chunking.OverlapSec >= cfg.Chunking.WindowSec {
		errs = append(errs, fmt.Errorf("chunking.overlap_sec %.2f must be smaller than chunking.window_sec %.2f",
			cfg.Chunking.OverlapSec, cfg.Chunking.WindowSec))
	}

	// VAD
	if cfg.VAD.Threshold < 0 || cfg.VAD.Threshold > 1 {
		errs = append(errs, fmt.Errorf("vad.threshold %.4f is out of range (0, 1]", cfg.VAD.Threshold))
	}
	if cfg.VAD.FrameMs < 0 {
		errs = append(errs, fmt.Errorf("vad.frame_ms %d must not be negative", cfg.VAD.FrameMs))
	}

	// Diarization
	if cfg.Diarization.TurnGapSec < 0 {
		errs = append(errs, fmt.Errorf("diarization.turn_gap_sec %.2f must not be negative", cfg.Diarization.TurnGapSec))
	}
	if cfg.Diarization.MaxSpeakers < 0 {
		errs = append(errs, fmt.Errorf("diarization.max_speakers %d must not be negative", cfg.Diarization.MaxSpeakers))
	}

	// Jobs
	if cfg.Jobs.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("jobs.max_concurrent %d must not be negative", cfg.Jobs.MaxConcurrent))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Debug("storage.postgres_dsn is empty; results will not be persisted")
	}

	return errors.Join(errs...)
}

// validateEngine checks one engine block and recurses into its fallback.
// prefix locates the block in error messages, e.g. "engine.fallback".
func validateEngine(prefix string, cfg *EngineConfig) []error {
	var errs []error
	if cfg.Name != "" && !cfg.Name.IsValid() {
		errs = append(errs, fmt.Errorf("%s.name %q is invalid; valid values: whisper, openai", prefix, cfg.Name))
	}
	if cfg.Name == EngineOpenAI && cfg.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api_key is required when %s.name is openai", prefix, prefix))
	}
	if cfg.Name != EngineOpenAI && cfg.BaseURL != "" {
		slog.Warn("base_url is set but the selected engine runs locally; it will be ignored",
			"engine", cfg.Name, "section", prefix)
	}
	if cfg.Threads < 0 {
		errs = append(errs, fmt.Errorf("%s.threads %d must not be negative", prefix, cfg.Threads))
	}
	if cfg.BeamSize < 0 {
		errs = append(errs, fmt.Errorf("%s.beam_size %d must not be negative", prefix, cfg.BeamSize))
	}
	if cfg.Fallback != nil {
		errs = append(errs, validateEngine(prefix+".fallback", cfg.Fallback)...)
	}
	return errs
}
