package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type mockJobStatusReader struct {
	status string
	found  bool
	err    error
}

func (m *mockJobStatusReader) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return m.status, m.found, m.err
}

func TestJobStatusHandler(t *testing.T) {
	jobID := uuid.New()

	tests := []struct {
		name       string
		param      string
		reader     *mockJobStatusReader
		wantStatus int
		wantCode   string
	}{
		{
			"known job",
			jobID.String(),
			&mockJobStatusReader{status: "processing", found: true},
			http.StatusOK,
			"",
		},
		{
			"terminal job",
			jobID.String(),
			&mockJobStatusReader{status: "failed:timeout", found: true},
			http.StatusOK,
			"",
		},
		{
			"unknown or expired job",
			jobID.String(),
			&mockJobStatusReader{found: false},
			http.StatusNotFound,
			"NOT_FOUND",
		},
		{
			"invalid uuid",
			"not-a-uuid",
			&mockJobStatusReader{},
			http.StatusBadRequest,
			"INVALID_REQUEST",
		},
		{
			"cache error",
			jobID.String(),
			&mockJobStatusReader{err: errors.New("connection refused")},
			http.StatusInternalServerError,
			"INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+tt.param, nil),
				"jobID", tt.param)
			NewJobStatusHandler(tt.reader)(rec, r)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code, _ := parseErr(t, rec); code != tt.wantCode {
					t.Errorf("expected %s, got %s", tt.wantCode, code)
				}
				return
			}
			data := parseData(t, rec)
			if data["status"] != tt.reader.status {
				t.Errorf("status = %v, want %s", data["status"], tt.reader.status)
			}
			if data["job_id"] != jobID.String() {
				t.Errorf("job_id = %v, want %s", data["job_id"], jobID)
			}
		})
	}
}
