package detect_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/detect"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/detect/mock"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/store"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/pkg/models"
)

const payloadLine = `{"alert_type":"Multiple_Persons_Detected","message":"3 persons detected","frame_filename":"f1.jpg","details":{"person_count":3}}`

// --- mock store ---

type mockStore struct {
	mu      sync.Mutex
	created []*models.Alert

	createErr error
	existing  *models.Alert
	getKeyErr error
}

func (s *mockStore) Ping(_ context.Context) error { return nil }

func (s *mockStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, alert)
	return nil
}

func (s *mockStore) GetAlert(_ context.Context, _ uuid.UUID) (*models.Alert, error) {
	return nil, store.ErrNotFound
}

func (s *mockStore) GetAlertByFrameKey(_ context.Context, _ string) (*models.Alert, error) {
	if s.getKeyErr != nil {
		return nil, s.getKeyErr
	}
	if s.existing != nil {
		return s.existing, nil
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) ListAlerts(_ context.Context, _ store.AlertFilter) ([]*models.Alert, int, error) {
	return nil, 0, nil
}

func (s *mockStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// --- stub cache recording status transitions ---

type stubCache struct {
	mu       sync.Mutex
	statuses []string
}

func (c *stubCache) Ping(_ context.Context) error { return nil }

func (c *stubCache) SetJobStatus(_ context.Context, _ uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
	return nil
}

func (c *stubCache) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		return "", false, nil
	}
	return c.statuses[len(c.statuses)-1], true, nil
}

func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func (c *stubCache) last(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		t.Fatal("no statuses recorded")
	}
	return c.statuses[len(c.statuses)-1]
}

// --- helpers ---

func newStagedJob(t *testing.T) *detect.Job {
	t.Helper()
	s, err := detect.StageScratch(t.TempDir(), "clip.mp4", strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("stage scratch: %v", err)
	}
	return detect.NewJob(s)
}

func workerWithStdout(stdout string) *mock.Worker {
	return &mock.Worker{
		DetectFunc: func(_ context.Context, _, _ string) (*detect.RawOutput, error) {
			return &detect.RawOutput{Stdout: stdout, Stderr: "diagnostics\n"}, nil
		},
	}
}

func assertScratchGone(t *testing.T, job *detect.Job) {
	t.Helper()
	if _, err := os.Stat(job.Scratch.Path()); !os.IsNotExist(err) {
		t.Errorf("scratch file still exists after job completed: stat err = %v", err)
	}
}

// --- tests ---

func TestProcess_AnomalyDetected(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	svc := detect.NewService(workerWithStdout("chatter\n"+payloadLine+"\n"), st, ca, t.TempDir())
	job := newStagedJob(t)

	alert, err := svc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert == nil {
		t.Fatal("expected alert")
	}
	if alert.FrameStorageKey != "f1.jpg" {
		t.Errorf("frame_storage_key = %q, want f1.jpg", alert.FrameStorageKey)
	}
	if alert.Details["person_count"] != float64(3) {
		t.Errorf("details not carried: %v", alert.Details)
	}
	if st.createdCount() != 1 {
		t.Errorf("expected exactly one alert persisted, got %d", st.createdCount())
	}
	if ca.last(t) != detect.JobStateAnomalyDetected {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_NoAnomaly(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	svc := detect.NewService(workerWithStdout("no anomalies found\n"), st, ca, t.TempDir())
	job := newStagedJob(t)

	alert, err := svc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert != nil {
		t.Errorf("expected nil alert, got %+v", alert)
	}
	if st.createdCount() != 0 {
		t.Errorf("expected zero alerts persisted, got %d", st.createdCount())
	}
	if ca.last(t) != detect.JobStateNoAnomaly {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_WorkerError(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	w := &mock.Worker{DetectFunc: func(_ context.Context, _, _ string) (*detect.RawOutput, error) {
		return nil, &detect.WorkerError{ExitCode: 1, Stderr: "model load failed"}
	}}
	svc := detect.NewService(w, st, ca, t.TempDir())
	job := newStagedJob(t)

	alert, err := svc.Process(context.Background(), job)
	if alert != nil {
		t.Errorf("expected nil alert, got %+v", alert)
	}
	var workerErr *detect.WorkerError
	if !errors.As(err, &workerErr) {
		t.Fatalf("expected WorkerError, got %v", err)
	}
	if st.createdCount() != 0 {
		t.Errorf("expected zero alerts persisted, got %d", st.createdCount())
	}
	if ca.last(t) != "failed:worker_error" {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_Timeout(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	w := &mock.Worker{DetectFunc: func(_ context.Context, _, _ string) (*detect.RawOutput, error) {
		return nil, fmt.Errorf("%w after 100ms", detect.ErrWorkerTimeout)
	}}
	svc := detect.NewService(w, st, ca, t.TempDir())
	job := newStagedJob(t)

	_, err := svc.Process(context.Background(), job)
	if !errors.Is(err, detect.ErrWorkerTimeout) {
		t.Fatalf("expected ErrWorkerTimeout, got %v", err)
	}
	if st.createdCount() != 0 {
		t.Errorf("no alert may be persisted from a terminated job, got %d", st.createdCount())
	}
	if ca.last(t) != "failed:timeout" {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_ContractViolation(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	raw := "chatter\n" + `{"alert_type":"a","message":"m","frame_filename":"f.jpg"}` + "\n"
	svc := detect.NewService(workerWithStdout(raw), st, ca, t.TempDir())
	job := newStagedJob(t)

	_, err := svc.Process(context.Background(), job)
	var contractErr *detect.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected ContractError, got %v", err)
	}
	if contractErr.Raw != raw {
		t.Errorf("raw output not retained: %q", contractErr.Raw)
	}
	if st.createdCount() != 0 {
		t.Errorf("expected zero alerts persisted, got %d", st.createdCount())
	}
	if ca.last(t) != "failed:contract_violation" {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_DuplicateFrameKeyIsIdempotentSuccess(t *testing.T) {
	existing := &models.Alert{
		ID:              uuid.New(),
		AlertType:       "Multiple_Persons_Detected",
		FrameStorageKey: "f1.jpg",
	}
	st := &mockStore{createErr: store.ErrDuplicateKey, existing: existing}
	ca := &stubCache{}
	svc := detect.NewService(workerWithStdout(payloadLine+"\n"), st, ca, t.TempDir())
	job := newStagedJob(t)

	alert, err := svc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("duplicate key must not surface as error, got %v", err)
	}
	if alert == nil || alert.ID != existing.ID {
		t.Fatalf("expected the existing alert back, got %+v", alert)
	}
	if ca.last(t) != detect.JobStateAnomalyDetected {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_PersistenceError(t *testing.T) {
	st := &mockStore{createErr: errors.New("connection refused")}
	ca := &stubCache{}
	svc := detect.NewService(workerWithStdout(payloadLine+"\n"), st, ca, t.TempDir())
	job := newStagedJob(t)

	_, err := svc.Process(context.Background(), job)
	var persistErr *detect.PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if ca.last(t) != "failed:persistence_error" {
		t.Errorf("final cached status = %q", ca.last(t))
	}
	assertScratchGone(t, job)
}

func TestProcess_PanicStillCleansUp(t *testing.T) {
	st := &mockStore{}
	ca := &stubCache{}
	w := &mock.Worker{DetectFunc: func(_ context.Context, _, _ string) (*detect.RawOutput, error) {
		panic("worker wrapper bug")
	}}
	svc := detect.NewService(w, st, ca, t.TempDir())
	job := newStagedJob(t)

	_, err := svc.Process(context.Background(), job)
	if err == nil {
		t.Fatal("expected error from panicking pipeline")
	}
	if st.createdCount() != 0 {
		t.Errorf("expected zero alerts persisted, got %d", st.createdCount())
	}
	assertScratchGone(t, job)
}

func TestProcess_WorkerReceivesScratchAndFramesDir(t *testing.T) {
	framesDir := t.TempDir()
	var gotVideo, gotFrames string
	w := &mock.Worker{DetectFunc: func(_ context.Context, videoPath, fd string) (*detect.RawOutput, error) {
		gotVideo, gotFrames = videoPath, fd
		return &detect.RawOutput{}, nil
	}}
	svc := detect.NewService(w, &mockStore{}, &stubCache{}, framesDir)
	job := newStagedJob(t)
	scratchPath := job.Scratch.Path()

	if _, err := svc.Process(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotVideo != scratchPath {
		t.Errorf("worker got video path %q, want %q", gotVideo, scratchPath)
	}
	if gotFrames != framesDir {
		t.Errorf("worker got frames dir %q, want %q", gotFrames, framesDir)
	}
}
