package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/config"
)

// RawOutput is everything a worker run produced on its two streams.
type RawOutput struct {
	Stdout string
	Stderr string
}

// Worker runs one detection pass over a video and returns the raw process
// output. Implementations may shell out, run in-process, or call a remote
// service; the orchestrator only depends on this capability.
type Worker interface {
	Detect(ctx context.Context, videoPath, framesDir string) (*RawOutput, error)
}

// ExecWorker invokes the detection worker as a subprocess:
//
//	command args... <videoPath> <framesDir>
//
// Stdout carries at most one JSON alert line among free-form chatter; stderr
// is diagnostics. Exit 0 means the run completed whether or not an anomaly
// was found.
type ExecWorker struct {
	command string
	args    []string
	timeout time.Duration
}

// NewExecWorker builds an ExecWorker from worker config.
func NewExecWorker(cfg config.WorkerConfig) *ExecWorker {
	return &ExecWorker{
		command: cfg.Command,
		args:    []string{cfg.Script},
		timeout: cfg.Timeout,
	}
}

// NewExecWorkerCommand builds an ExecWorker from an explicit command line.
func NewExecWorkerCommand(command string, args []string, timeout time.Duration) *ExecWorker {
	return &ExecWorker{command: command, args: args, timeout: timeout}
}

// Detect spawns the worker and collects both streams concurrently with
// execution. Each stream gets its own reader goroutine so neither can fill
// its OS pipe buffer while the other is drained, which would deadlock the
// worker. The run is worker-complete only once both streams have closed and
// the exit status has been observed.
//
// On deadline expiry the process is killed and ErrWorkerTimeout returned;
// output from a killed worker is discarded.
func (w *ExecWorker) Detect(ctx context.Context, videoPath, framesDir string) (*RawOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	argv := make([]string, 0, len(w.args)+2)
	argv = append(argv, w.args...)
	argv = append(argv, videoPath, framesDir)
	cmd := exec.CommandContext(ctx, w.command, argv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrWorkerStartup, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrWorkerStartup, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerStartup, err)
	}

	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&outBuf, stdout)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&errBuf, stderr)
	}()

	// Both streams closed, then exit observed.
	wg.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrWorkerTimeout, w.timeout)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &WorkerError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   errBuf.String(),
			}
		}
		return nil, fmt.Errorf("wait for worker: %w", waitErr)
	}

	return &RawOutput{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}, nil
}
