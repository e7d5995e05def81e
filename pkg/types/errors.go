package types

import "fmt"

// InvalidInputError reports media that cannot be segmented: zero or negative
// duration, or otherwise unusable input. It is surfaced immediately and never
// retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// UnsupportedMediaError reports input the media normalizer could not read or
// decode (corrupt container, missing audio stream, unknown codec).
type UnsupportedMediaError struct {
	Path string
	Err  error
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media %q: %v", e.Path, e.Err)
}

func (e *UnsupportedMediaError) Unwrap() error { return e.Err }

// ModelLoadError reports a recognition engine that failed to load. It is
// fatal to the job: no chunk can proceed without an engine instance.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// RecognitionError reports a failed recognition pass for a single chunk.
// It is recovered locally: the chunk is recorded as failed and the job
// continues with partial coverage.
type RecognitionError struct {
	ChunkIndex int
	Start      float64
	End        float64
	Err        error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognize chunk %d [%.2fs-%.2fs]: %v", e.ChunkIndex, e.Start, e.End, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// ReconciliationError reports an internal invariant violation while merging
// chunk results. It is never caused by valid input; treat it as a pipeline
// bug, not a user error.
type ReconciliationError struct {
	Reason string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: %s", e.Reason)
}
