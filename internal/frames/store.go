// Package frames is the local-disk store for detection frame images. The
// pipeline never writes frames itself; the worker saves them here and the
// pipeline links the resulting keys.
package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store serves frame artifacts by storage key from a root directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store over it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Dir returns the directory handed to the detection worker as its frame
// output location.
func (s *Store) Dir() string { return s.root }

// Open returns the frame file for key. Keys are single path elements; any
// traversal attempt is rejected.
func (s *Store) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Exists reports whether a frame with the given key is present.
func (s *Store) Exists(key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || clean != filepath.Base(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid frame key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
