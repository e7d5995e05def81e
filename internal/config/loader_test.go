package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/longscribe/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
log:
  level: debug
media:
  ffmpeg_path: /usr/local/bin/ffmpeg
  speech_filters: false
engine:
  name: whisper
  model: /models/ggml-base.bin
  threads: 4
  beam_size: 5
chunking:
  strategy: vad
  window_sec: 30
  overlap_sec: 10
vad:
  threshold: 0.02
diarization:
  enabled: true
  max_speakers: 4
jobs:
  max_concurrent: 2
storage:
  postgres_dsn: "postgres://localhost/longscribe"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Name != config.EngineWhisper {
		t.Errorf("engine name = %q, want whisper", cfg.Engine.Name)
	}
	if cfg.Engine.Model != "/models/ggml-base.bin" {
		t.Errorf("engine model = %q", cfg.Engine.Model)
	}
	if cfg.Chunking.Strategy != config.StrategyVAD {
		t.Errorf("chunking strategy = %q, want vad", cfg.Chunking.Strategy)
	}
	if cfg.Media.SpeechFilters == nil || *cfg.Media.SpeechFilters {
		t.Error("media.speech_filters should be explicitly false")
	}
	if cfg.Jobs.MaxConcurrent != 2 {
		t.Errorf("jobs.max_concurrent = %d, want 2", cfg.Jobs.MaxConcurrent)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  name: whisper
  modle: /models/ggml-base.bin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_OpenAIRequiresAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  name: openai
  model: whisper-1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for openai engine without api key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_FallbackEngineChecked(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  name: whisper
  model: /models/ggml-base.bin
  fallback:
    name: openai
    model: whisper-1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback openai engine without api key, got nil")
	}
	if !strings.Contains(err.Error(), "engine.fallback.api_key") {
		t.Errorf("error should mention engine.fallback.api_key, got: %v", err)
	}
}

func TestValidate_OverlapMustBeSmallerThanWindow(t *testing.T) {
	t.Parallel()
	yaml := `
chunking:
  window_sec: 10
  overlap_sec: 10
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for overlap >= window, got nil")
	}
	if !strings.Contains(err.Error(), "overlap_sec") {
		t.Errorf("error should mention overlap_sec, got: %v", err)
	}
}

func TestValidate_InvalidEnums(t *testing.T) {
	t.Parallel()
	yaml := `
log:
  level: loud
engine:
  name: parakeet
chunking:
  strategy: psychic
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log.level", "engine.name", "chunking.strategy"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_VADThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := `
vad:
  threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range vad threshold, got nil")
	}
	if !strings.Contains(err.Error(), "vad.threshold") {
		t.Errorf("error should mention vad.threshold, got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	// All defaults are resolved downstream; an empty document must validate.
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("nil config")
	}
}
