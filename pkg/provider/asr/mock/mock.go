// Package mock provides a scripted asr.Engine for tests.
//
// The engine returns pre-programmed results in call order and records every
// Recognize invocation, so pipeline tests can assert on language hints,
// sample counts, and lifecycle behaviour without a real model.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertions.
var (
	_ asr.Engine = (*Engine)(nil)
	_ asr.Handle = (*Handle)(nil)
)

// Call records one Recognize invocation.
type Call struct {
	NumSamples int
	LangHint   string
}

// Engine is a scripted asr.Engine. Configure Results and Errs before use;
// the i-th Recognize call returns Results[i] or Errs[i]. When the script is
// exhausted, Recognize returns an empty result.
type Engine struct {
	// LoadErr, when set, is returned by Load wrapped in a ModelLoadError.
	LoadErr error

	// Results and Errs script successive Recognize calls. For call i, if
	// Errs[i] is non-nil it is returned; otherwise Results[i].
	Results []*asr.Result
	Errs    []error

	mu      sync.Mutex
	handles []*Handle
}

// Load returns a new scripted handle, or LoadErr when configured.
func (e *Engine) Load(_ context.Context, opts asr.LoadOptions) (asr.Handle, error) {
	if e.LoadErr != nil {
		return nil, &types.ModelLoadError{Model: opts.Model, Err: e.LoadErr}
	}
	h := &Handle{engine: e}
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
	return h, nil
}

// Handles returns every handle this engine has produced.
func (e *Engine) Handles() []*Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Handle(nil), e.handles...)
}

// Handle is a scripted asr.Handle produced by Engine.Load.
type Handle struct {
	engine *Engine

	mu     sync.Mutex
	calls  []Call
	closed bool
	n      int
}

// Recognize returns the next scripted result or error.
func (h *Handle) Recognize(ctx context.Context, samples []float32, langHint string) (*asr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("mock: handle is closed")
	}
	h.calls = append(h.calls, Call{NumSamples: len(samples), LangHint: langHint})

	i := h.n
	h.n++
	if i < len(h.engine.Errs) && h.engine.Errs[i] != nil {
		return nil, h.engine.Errs[i]
	}
	if i < len(h.engine.Results) && h.engine.Results[i] != nil {
		return h.engine.Results[i], nil
	}
	return &asr.Result{}, nil
}

// Close marks the handle closed. Safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Calls returns the recorded Recognize invocations in order.
func (h *Handle) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}
