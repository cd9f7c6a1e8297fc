package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/cache"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/store"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/pkg/models"
)

const jobStatusTTL = 30 * time.Minute

// Service orchestrates one upload job from received to cleaned: run the
// worker, parse its output, persist the alert, and always release the
// scratch file on the way out.
type Service struct {
	worker    Worker
	store     store.Store
	cache     cache.Cache
	framesDir string
}

// NewService creates a detection Service. framesDir is where the worker
// saves detection frames; the service only passes the path through and
// links the resulting keys.
func NewService(worker Worker, st store.Store, ca cache.Cache, framesDir string) *Service {
	return &Service{
		worker:    worker,
		store:     st,
		cache:     ca,
		framesDir: framesDir,
	}
}

// Process runs the job to a terminal state and returns the persisted alert,
// or nil when the worker found no anomaly.
//
// The deferred block is the Cleanup Sentinel: it fires on success, worker
// failure, timeout, contract violation, persistence failure, and panic, so
// the scratch file is gone before any response is written.
func (s *Service) Process(ctx context.Context, job *Job) (alert *models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in detection pipeline", "job_id", job.ID, "error", r)
			if job.State == JobStateReceived {
				_ = job.transition(JobStateProcessing)
			}
			if job.State == JobStateProcessing {
				_ = job.fail(FailureWorkerError)
			}
			alert = nil
			err = fmt.Errorf("detection pipeline panic: %v", r)
		}
		s.cacheStatus(job)
		job.Scratch.Release()
		_ = job.transition(JobStateCleaned)
	}()

	s.cacheStatus(job)
	if err := job.transition(JobStateProcessing); err != nil {
		return nil, err
	}
	s.cacheStatus(job)

	out, werr := s.worker.Detect(ctx, job.Scratch.Path(), s.framesDir)
	if werr != nil {
		if errors.Is(werr, ErrWorkerTimeout) {
			_ = job.fail(FailureTimeout)
		} else {
			_ = job.fail(FailureWorkerError)
		}
		return nil, werr
	}

	payload, perr := ParseOutput(out.Stdout)
	if perr != nil {
		_ = job.fail(FailureContractViolation)
		return nil, perr
	}
	if payload == nil {
		_ = job.transition(JobStateNoAnomaly)
		slog.Info("job completed, no anomalies", "job_id", job.ID)
		return nil, nil
	}

	now := time.Now().UTC()
	a := &models.Alert{
		ID:              uuid.New(),
		Timestamp:       now,
		AlertType:       payload.AlertType,
		Message:         payload.Message,
		FrameStorageKey: payload.FrameFilename,
		Details:         payload.Details,
		CreatedAt:       now,
	}

	if cerr := s.store.CreateAlert(ctx, a); cerr != nil {
		if errors.Is(cerr, store.ErrDuplicateKey) {
			// An alert for this frame already exists; idempotent success.
			// Logged loudly because a duplicate may also mean the same
			// artifact was reprocessed upstream.
			existing, gerr := s.store.GetAlertByFrameKey(ctx, payload.FrameFilename)
			if gerr != nil {
				_ = job.fail(FailurePersistenceError)
				return nil, &PersistenceError{Err: gerr}
			}
			slog.Warn("duplicate frame key, returning existing alert",
				"job_id", job.ID,
				"frame_storage_key", payload.FrameFilename,
				"existing_alert_id", existing.ID)
			_ = job.transition(JobStateAnomalyDetected)
			return existing, nil
		}
		_ = job.fail(FailurePersistenceError)
		return nil, &PersistenceError{Err: cerr}
	}

	_ = job.transition(JobStateAnomalyDetected)
	slog.Info("anomaly recorded",
		"job_id", job.ID, "alert_id", a.ID, "frame_storage_key", a.FrameStorageKey)
	return a, nil
}

// cacheStatus mirrors the job's current status to the cache for the poll
// endpoint. Cache failures never affect the pipeline.
func (s *Service) cacheStatus(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.SetJobStatus(ctx, job.ID, job.Status(), jobStatusTTL); err != nil {
		slog.Warn("cache job status failed", "job_id", job.ID, "error", err)
	}
}
