// Package asr defines the Engine interface for speech recognition backends.
//
// An ASR engine wraps a batch transcription model (a local whisper.cpp model
// or a remote transcription API) and exposes it through a two-level contract:
// Engine loads model weights and returns a Handle; the Handle runs inference
// over audio slices and owns the model's memory until Close.
//
// A Handle is a uniquely-owned resource. It is acquired exactly once per
// transcription job, held by that job's recognition session for the whole
// chunk loop, and released on every exit path. Handles must never be shared
// across concurrent jobs — the accelerator memory behind a handle is mutable
// state that cannot serve two chunk loops at once. Deployments that want N
// concurrent jobs provision N handles.
package asr

import (
	"context"

	"github.com/MrWong99/longscribe/pkg/types"
)

// LoadOptions describes which model to load and how.
type LoadOptions struct {
	// Model identifies the model to load. For local engines this is a file
	// path to the weights; for remote engines a model name (e.g. "whisper-1").
	Model string

	// Language is an optional BCP-47 hint applied to every Recognize call
	// that does not pass its own hint. Empty means auto-detect.
	Language string

	// Translate requests translation to English instead of transcription,
	// for engines that support it.
	Translate bool
}

// Result is the output of one Recognize call. Timestamps are relative to the
// start of the supplied audio slice; the caller re-bases them to absolute
// media time.
type Result struct {
	// Segments are the phrase-level results in order, each carrying its
	// word-level timings when the engine provides them.
	Segments []types.Segment

	// Language is the BCP-47 code the engine detected (or was told to use).
	Language string
}

// Handle is a loaded recognition engine instance.
//
// A Handle is NOT safe for concurrent use. The owning session serialises all
// Recognize calls; Close may be called at most once after the last call
// returns. Calling Recognize after Close returns an error.
type Handle interface {
	// Recognize transcribes a slice of mono float32 samples at the engine's
	// expected sample rate (16 kHz). langHint selects the recognition
	// language; empty requests auto-detection. Timestamps in the result are
	// relative to the start of samples.
	Recognize(ctx context.Context, samples []float32, langHint string) (*Result, error)

	// Close releases the model weights and any accelerator memory held by
	// this handle. Calling Close more than once is safe and returns nil.
	Close() error
}

// Engine is the factory for recognition handles. It is the top-level
// interface implemented by each ASR backend.
//
// Implementations must be safe for concurrent use: multiple jobs may call
// Load simultaneously to acquire independent handles.
type Engine interface {
	// Load acquires a model instance. The returned Handle is ready for
	// Recognize calls. The caller owns the Handle and must call Close.
	Load(ctx context.Context, opts LoadOptions) (Handle, error)
}
