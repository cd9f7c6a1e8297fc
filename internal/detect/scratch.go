package detect

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scratch owns one staged upload file. Release removes it exactly once, on
// whatever path the job exits through; removal failures are logged and never
// propagate, since the user-visible outcome has already been determined.
type Scratch struct {
	path string
	once sync.Once
}

// StageScratch writes the upload payload to a uniquely named file under dir
// and returns a Scratch owning it. The name combines a nanosecond timestamp
// with a random suffix, so collisions are effectively impossible.
func StageScratch(dir, originalName string, r io.Reader) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	ext := filepath.Ext(originalName)
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close scratch file: %w", err)
	}

	return &Scratch{path: path}, nil
}

// Path returns the staged file's location on disk.
func (s *Scratch) Path() string { return s.path }

// Release removes the scratch file. Safe to call more than once; only the
// first call removes.
func (s *Scratch) Release() {
	s.once.Do(func() {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("scratch cleanup failed", "path", s.path, "error", err)
		}
	})
}
