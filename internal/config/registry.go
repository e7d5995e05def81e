package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/longscribe/internal/resilience"
	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/provider/asr/openai"
	"github.com/MrWong99/longscribe/pkg/provider/asr/whisper"
	"github.com/MrWong99/longscribe/pkg/provider/diarize"
	"github.com/MrWong99/longscribe/pkg/provider/diarize/pause"
	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/provider/vad/energy"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	engine   map[EngineName]func(EngineConfig) (asr.Engine, error)
	detector map[string]func(VADConfig) (vad.Detector, error)
	diarizer map[string]func(DiarizationConfig) (diarize.Diarizer, error)
}

// NewRegistry returns an empty [Registry]. Most callers want [DefaultRegistry]
// instead, which comes pre-populated with the built-in providers.
func NewRegistry() *Registry {
	return &Registry{
		engine:   make(map[EngineName]func(EngineConfig) (asr.Engine, error)),
		detector: make(map[string]func(VADConfig) (vad.Detector, error)),
		diarizer: make(map[string]func(DiarizationConfig) (diarize.Diarizer, error)),
	}
}

// DefaultRegistry returns a [Registry] with all built-in providers registered:
// the whisper.cpp and OpenAI engines, the energy detector, and the pause
// diarizer.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterEngine(EngineWhisper, func(cfg EngineConfig) (asr.Engine, error) {
		var opts []whisper.Option
		if cfg.Threads > 0 {
			opts = append(opts, whisper.WithThreads(cfg.Threads))
		}
		if cfg.BeamSize > 0 {
			opts = append(opts, whisper.WithBeamSize(cfg.BeamSize))
		}
		if cfg.MaxSegmentLength > 0 {
			opts = append(opts, whisper.WithMaxSegmentLength(cfg.MaxSegmentLength))
		}
		return whisper.New(opts...), nil
	})

	r.RegisterEngine(EngineOpenAI, func(cfg EngineConfig) (asr.Engine, error) {
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(cfg.APIKey, opts...)
	})

	r.RegisterDetector("energy", func(cfg VADConfig) (vad.Detector, error) {
		var opts []energy.Option
		if cfg.Threshold > 0 {
			opts = append(opts, energy.WithThreshold(cfg.Threshold))
		}
		if cfg.FrameMs > 0 {
			opts = append(opts, energy.WithFrameMs(cfg.FrameMs))
		}
		if cfg.MinSpeechMs > 0 {
			opts = append(opts, energy.WithMinSpeechMs(cfg.MinSpeechMs))
		}
		if cfg.MinSilenceMs > 0 {
			opts = append(opts, energy.WithMinSilenceMs(cfg.MinSilenceMs))
		}
		return energy.New(opts...), nil
	})

	r.RegisterDiarizer("pause", func(cfg DiarizationConfig) (diarize.Diarizer, error) {
		var opts []pause.Option
		if cfg.TurnGapSec > 0 {
			opts = append(opts, pause.WithTurnGap(cfg.TurnGapSec))
		}
		if cfg.MaxSpeakers > 0 {
			opts = append(opts, pause.WithMaxSpeakers(cfg.MaxSpeakers))
		}
		return pause.New(opts...), nil
	})

	return r
}

// RegisterEngine registers a recognition engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEngine(name EngineName, factory func(EngineConfig) (asr.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engine[name] = factory
}

// RegisterDetector registers a speech activity detector factory under name.
func (r *Registry) RegisterDetector(name string, factory func(VADConfig) (vad.Detector, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detector[name] = factory
}

// RegisterDiarizer registers a diarizer factory under name.
func (r *Registry) RegisterDiarizer(name string, factory func(DiarizationConfig) (diarize.Diarizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diarizer[name] = factory
}

// CreateEngine instantiates the recognition engine selected by cfg.Name.
// An empty name selects the whisper engine. When cfg declares fallbacks, the
// whole chain is built and wrapped in a circuit-breaking failover engine.
// Returns [ErrProviderNotRegistered] when no factory has been registered for
// a name in the chain.
func (r *Registry) CreateEngine(cfg EngineConfig) (asr.Engine, error) {
	primary, err := r.createOneEngine(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == nil {
		return primary, nil
	}

	chain := resilience.NewEngine(string(engineName(cfg)), primary, resilience.BreakerConfig{})
	for fb := cfg.Fallback; fb != nil; fb = fb.Fallback {
		eng, err := r.createOneEngine(*fb)
		if err != nil {
			return nil, err
		}
		// A job's load options carry the primary's model, which is
		// meaningless to a different backend; pin the fallback's own.
		if fb.Model != "" {
			eng = modelOverride{Engine: eng, model: fb.Model}
		}
		chain.AddFallback(string(engineName(*fb)), eng)
	}
	return chain, nil
}

// modelOverride replaces the model in load options with a fixed one.
type modelOverride struct {
	asr.Engine
	model string
}

func (m modelOverride) Load(ctx context.Context, opts asr.LoadOptions) (asr.Handle, error) {
	opts.Model = m.model
	return m.Engine.Load(ctx, opts)
}

func (r *Registry) createOneEngine(cfg EngineConfig) (asr.Engine, error) {
	name := engineName(cfg)
	r.mu.RLock()
	factory, ok := r.engine[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: engine/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

func engineName(cfg EngineConfig) EngineName {
	if cfg.Name == "" {
		return EngineWhisper
	}
	return cfg.Name
}

// CreateDetector instantiates the speech activity detector registered under
// name using cfg.
func (r *Registry) CreateDetector(name string, cfg VADConfig) (vad.Detector, error) {
	r.mu.RLock()
	factory, ok := r.detector[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: detector/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// CreateDiarizer instantiates the diarizer registered under name using cfg.
func (r *Registry) CreateDiarizer(name string, cfg DiarizationConfig) (diarize.Diarizer, error) {
	r.mu.RLock()
	factory, ok := r.diarizer[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: diarizer/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}
