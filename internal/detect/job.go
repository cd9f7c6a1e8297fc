package detect

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	JobStateReceived        = "received"
	JobStateProcessing      = "processing"
	JobStateNoAnomaly       = "no_anomaly"
	JobStateAnomalyDetected = "anomaly_detected"
	JobStateFailed          = "failed"
	JobStateCleaned         = "cleaned"
)

// Failure reasons attached to a job in JobStateFailed.
const (
	FailureTimeout           = "timeout"
	FailureWorkerError       = "worker_error"
	FailureContractViolation = "contract_violation"
	FailurePersistenceError  = "persistence_error"
)

var validTransitions = map[string][]string{
	JobStateReceived:        {JobStateProcessing},
	JobStateProcessing:      {JobStateNoAnomaly, JobStateAnomalyDetected, JobStateFailed},
	JobStateNoAnomaly:       {JobStateCleaned},
	JobStateAnomalyDetected: {JobStateCleaned},
	JobStateFailed:          {JobStateCleaned},
}

// Job is one upload moving through the pipeline. It owns its scratch file
// exclusively until the terminal transition, at which point the Cleanup
// Sentinel removes it. Jobs are never persisted; their status is mirrored
// to the cache for the poll endpoint.
type Job struct {
	ID            uuid.UUID
	Scratch       *Scratch
	ReceivedAt    time.Time
	State         string
	FailureReason string
}

// NewJob creates a job in the received state owning the given scratch file.
func NewJob(scratch *Scratch) *Job {
	return &Job{
		ID:         uuid.New(),
		Scratch:    scratch,
		ReceivedAt: time.Now().UTC(),
		State:      JobStateReceived,
	}
}

// transition moves the job to next, enforcing the state machine:
// received → processing → {no_anomaly | anomaly_detected | failed} → cleaned.
func (j *Job) transition(next string) error {
	for _, allowed := range validTransitions[j.State] {
		if allowed == next {
			j.State = next
			return nil
		}
	}
	return fmt.Errorf("invalid job state transition: %s -> %s", j.State, next)
}

// fail moves the job to the failed state and records why.
func (j *Job) fail(reason string) error {
	if err := j.transition(JobStateFailed); err != nil {
		return err
	}
	j.FailureReason = reason
	return nil
}

// Status is the externally visible status string, including the failure
// reason when failed, e.g. "failed:timeout".
func (j *Job) Status() string {
	if j.FailureReason != "" {
		return j.State + ":" + j.FailureReason
	}
	return j.State
}
