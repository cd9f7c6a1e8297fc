package handler

import (
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/api/response"
)

// FrameStore serves saved detection frames by storage key.
type FrameStore interface {
	Open(key string) (*os.File, error)
	Exists(key string) bool
}

// NewFrameHandler returns an http.HandlerFunc for GET /api/v1/frames/{key}.
// This is the static read path for frame artifacts; the detection pipeline
// only produces the keys.
func NewFrameHandler(fs FrameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if key == "" || !fs.Exists(key) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Frame not found", nil)
			return
		}

		f, err := fs.Open(key)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to open frame", nil)
			return
		}
		defer f.Close()

		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read frame", nil)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(buf[:n]))
		io.Copy(w, f)
	}
}
