package models

import "errors"

// Sentinel errors shared across the pipeline. Callers match with errors.Is.
var (
	// ErrDuplicateInFlight is returned by enqueue when a non-terminal job
	// already exists for the subject. Not a failure — callers treat it as
	// an idempotent no-op.
	ErrDuplicateInFlight = errors.New("analysis already in flight for subject")

	// ErrInvalidPhaseTransition marks an out-of-order phase advance. This
	// is a programming error, never retried.
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDataUnavailable is returned by the data-access client when the
	// upstream has no data for a subject. Distinct from a transport error:
	// the value is absent, not zero.
	ErrDataUnavailable = errors.New("data not available")

	// ErrQueueEmpty is returned by dequeue when no job is eligible.
	ErrQueueEmpty = errors.New("queue empty")

	// ErrJobCancelled is recorded as the failure reason when a job is
	// cancelled mid-flight.
	ErrJobCancelled = errors.New("cancelled")

	// ErrJobSuperseded is returned by job writes arriving after the job
	// already reached a terminal state, e.g. a worker that outlived the
	// stale reaper. The caller abandons the job without failing it again.
	ErrJobSuperseded = errors.New("job already terminal")
)
