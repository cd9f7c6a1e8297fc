package detect

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkerStartup means the worker process could not be spawned at all.
	ErrWorkerStartup = errors.New("detection worker failed to start")

	// ErrWorkerTimeout means the worker exceeded its deadline and was killed.
	// No output from a killed worker is ever parsed or persisted.
	ErrWorkerTimeout = errors.New("detection worker timed out")
)

// WorkerError is returned when the worker runs but exits nonzero. Stderr
// carries the worker's diagnostic stream for operator debugging.
type WorkerError struct {
	ExitCode int
	Stderr   string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("detection worker exited with code %d", e.ExitCode)
}

// ContractError is returned when the worker's stdout contained a payload
// line that failed schema validation. Raw holds the complete stdout
// verbatim; partial payloads are never accepted or repaired.
type ContractError struct {
	Reason string
	Raw    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("worker output violates contract: %s", e.Reason)
}

// PersistenceError wraps a store failure while recording an alert. The
// pipeline does not retry; the caller may.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist alert: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
