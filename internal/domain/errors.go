package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch signals a failed dump download (HTTP status, connection, timeout).
	ErrFetch = errors.New("fetch failed")
	// ErrDecompress signals a corrupt or truncated archive.
	ErrDecompress = errors.New("decompress failed")
	// ErrFilter signals an unreadable filter input or unwritable output.
	ErrFilter = errors.New("filter failed")
	// ErrIndex signals that the index service is unreachable.
	ErrIndex = errors.New("index service unavailable")
	// ErrConfiguration signals missing or invalid settings.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrJobInFlight signals a second sync for a (source, index) pair that is already running.
	ErrJobInFlight = errors.New("sync job already in flight")
	// ErrJobFinished signals an attempt to finish a job twice.
	ErrJobFinished = errors.New("job already finished")
	// ErrInvalidTransition signals a non-monotonic job status change.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported signals a capability the provider does not offer.
	ErrUnsupported = errors.New("not supported by provider")
	// ErrProvider signals a failed provider API call.
	ErrProvider = errors.New("provider error")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Stage names a pipeline step. It matches the job status active while the step runs.
type Stage string

// Pipeline stages.
const (
	StageFetch      Stage = "FETCHING"
	StageDecompress Stage = "DECOMPRESSING"
	StageFilter     Stage = "FILTERING"
	StageLoad       Stage = "LOADING"
)

// StageError is a fatal error raised by a pipeline stage. It unwraps to both
// the stage sentinel (ErrFetch, ErrIndex, ...) and the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

// NewStageError wraps err as a fatal error of the given stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.sentinel(), e.Err)
}

// Unwrap exposes the sentinel and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *StageError) sentinel() error {
	switch e.Stage {
	case StageFetch:
		return ErrFetch
	case StageDecompress:
		return ErrDecompress
	case StageFilter:
		return ErrFilter
	case StageLoad:
		return ErrIndex
	default:
		return errors.New("stage failed")
	}
}
