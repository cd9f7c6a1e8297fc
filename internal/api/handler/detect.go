package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/api/response"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/detect"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/pkg/models"
)

// DetectionRunner runs one staged job through the detection pipeline.
type DetectionRunner interface {
	Process(ctx context.Context, job *detect.Job) (*models.Alert, error)
}

// DetectOptions configures upload validation and staging.
type DetectOptions struct {
	UploadDir      string
	MaxUploadBytes int64
}

// memory ceiling for multipart parsing; larger bodies spill to temp files
const multipartMemory = 32 << 20

var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

type detectResponse struct {
	JobID           uuid.UUID     `json:"job_id"`
	Message         string        `json:"message"`
	AnomalyDetected bool          `json:"anomaly_detected"`
	Alert           *models.Alert `json:"alert,omitempty"`
}

// NewDetectHandler returns an http.HandlerFunc for POST /api/v1/detect.
//
// Validation runs before any resource is committed: the size cap and the
// extension allow-list both reject the request without spawning a worker or
// touching the database. The connection is held open while the job runs.
func NewDetectHandler(runner DetectionRunner, opts DetectOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.Error(w, http.StatusBadRequest, "FILE_TOO_LARGE",
					fmt.Sprintf("Upload exceeds the %d byte limit", opts.MaxUploadBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Request body must be multipart/form-data", nil)
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"A 'video' file field is required", nil)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedVideoExts[ext] {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_MEDIA_TYPE",
				fmt.Sprintf("File type %q is not an accepted video format", ext), nil)
			return
		}

		scratch, err := detect.StageScratch(opts.UploadDir, header.Filename, file)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "STORAGE_ERROR",
				"Failed to stage the uploaded file", nil)
			return
		}

		job := detect.NewJob(scratch)
		alert, err := runner.Process(r.Context(), job)
		if err != nil {
			respondPipelineError(w, err)
			return
		}

		if alert == nil {
			response.JSON(w, detectResponse{
				JobID:           job.ID,
				Message:         "no anomalies detected",
				AnomalyDetected: false,
			})
			return
		}

		response.Created(w, detectResponse{
			JobID:           job.ID,
			Message:         "anomaly detected and recorded",
			AnomalyDetected: true,
			Alert:           alert,
		})
	}
}

// respondPipelineError maps pipeline failures to 500s with a diagnostic
// detail (raw stderr or stdout) for operators. Stack traces are never
// exposed; the recovery middleware handles panics separately.
func respondPipelineError(w http.ResponseWriter, err error) {
	var workerErr *detect.WorkerError
	var contractErr *detect.ContractError
	var persistErr *detect.PersistenceError

	switch {
	case errors.Is(err, detect.ErrWorkerTimeout):
		response.Error(w, http.StatusInternalServerError, "WORKER_TIMEOUT",
			"Detection worker exceeded its time limit and was terminated", nil)
	case errors.Is(err, detect.ErrWorkerStartup):
		response.Error(w, http.StatusInternalServerError, "WORKER_FAILED",
			"Detection worker could not be started", nil)
	case errors.As(err, &workerErr):
		response.Error(w, http.StatusInternalServerError, "WORKER_FAILED",
			fmt.Sprintf("Detection worker exited with code %d", workerErr.ExitCode),
			workerErr.Stderr)
	case errors.As(err, &contractErr):
		response.Error(w, http.StatusInternalServerError, "CONTRACT_VIOLATION",
			"Detection worker produced malformed output", contractErr.Raw)
	case errors.As(err, &persistErr):
		response.Error(w, http.StatusInternalServerError, "PERSISTENCE_ERROR",
			"Failed to record the alert; the request may be retried", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
