package mock

import (
	"context"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/detect"
)

// Worker satisfies detect.Worker for testing.
type Worker struct {
	DetectFunc func(ctx context.Context, videoPath, framesDir string) (*detect.RawOutput, error)
}

func (w *Worker) Detect(ctx context.Context, videoPath, framesDir string) (*detect.RawOutput, error) {
	if w.DetectFunc != nil {
		return w.DetectFunc(ctx, videoPath, framesDir)
	}
	return &detect.RawOutput{}, nil
}

// NewWorker returns a Worker that reports a clean run with no anomaly.
func NewWorker() *Worker {
	return &Worker{
		DetectFunc: func(_ context.Context, _, _ string) (*detect.RawOutput, error) {
			return &detect.RawOutput{Stderr: "mock worker: no anomalies\n"}, nil
		},
	}
}
