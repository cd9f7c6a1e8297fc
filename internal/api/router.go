package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/api/middleware"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler     http.HandlerFunc
	DetectHandler     http.HandlerFunc
	JobStatusHandler  http.HandlerFunc
	ListAlertsHandler http.HandlerFunc
	GetAlertHandler   http.HandlerFunc
	FrameHandler      http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Rate-limited routes
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/detect", orNotImplemented(deps.DetectHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))

		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))
		r.Get("/api/v1/alerts/{alertID}", orNotImplemented(deps.GetAlertHandler))

		r.Get("/api/v1/frames/{key}", orNotImplemented(deps.FrameHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
