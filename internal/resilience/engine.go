package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/longscribe/pkg/provider/asr"
)

// Compile-time assertion that Engine implements asr.Engine.
var _ asr.Engine = (*Engine)(nil)

// ErrAllEnginesFailed is returned by [Engine.Load] when every configured
// engine fails or has an open circuit breaker.
var ErrAllEnginesFailed = errors.New("resilience: all engines failed")

// entry pairs an engine with its dedicated circuit breaker.
type entry struct {
	name    string
	engine  asr.Engine
	breaker *CircuitBreaker
}

// Engine composes a primary recognition engine with ordered fallbacks.
// Load tries each engine in registration order, skipping entries whose
// circuit breaker is open; the first handle wins and serves the whole job.
// Per-chunk Recognize failures are not retried here — chunk isolation is the
// job runner's concern.
type Engine struct {
	entries []entry
	cfg     BreakerConfig
}

// NewEngine creates a failover [Engine] with primary as the first entry.
// cfg tunes the per-engine circuit breakers; its Name field is ignored.
func NewEngine(primaryName string, primary asr.Engine, cfg BreakerConfig) *Engine {
	e := &Engine{cfg: cfg}
	e.AddFallback(primaryName, primary)
	return e
}

// AddFallback appends an engine tried after all previously registered ones.
func (e *Engine) AddFallback(name string, eng asr.Engine) {
	cfg := e.cfg
	cfg.Name = "engine/" + name
	e.entries = append(e.entries, entry{
		name:    name,
		engine:  eng,
		breaker: NewCircuitBreaker(cfg),
	})
}

// Load tries each engine in order and returns the first handle obtained.
// When every engine fails, the returned error wraps [ErrAllEnginesFailed]
// together with each engine's failure, so callers can still match the
// underlying error types with errors.As.
func (e *Engine) Load(ctx context.Context, opts asr.LoadOptions) (asr.Handle, error) {
	var failures []error
	for i := range e.entries {
		ent := &e.entries[i]
		var handle asr.Handle
		err := ent.breaker.Execute(func() error {
			var lerr error
			handle, lerr = ent.engine.Load(ctx, opts)
			return lerr
		})
		if err == nil {
			if i > 0 {
				slog.Info("fell back to secondary engine", "engine", ent.name)
			}
			return handle, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping engine, circuit open", "engine", ent.name)
		} else {
			slog.Warn("engine load failed, trying next", "engine", ent.name, "error", err)
		}
		failures = append(failures, fmt.Errorf("%s: %w", ent.name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrAllEnginesFailed, errors.Join(failures...))
}
