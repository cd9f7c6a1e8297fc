package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/api/response"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/internal/store"
	"github.com/itsSabbir/anomaly-detection-system-2-sub000/pkg/models"
)

// AlertReader is the read-side store access the alert handlers depend on.
type AlertReader interface {
	GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, int, error)
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
// Ordering is by database-assigned timestamp, newest first.
func NewListAlertsHandler(s AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 20)
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		alerts, total, err := s.ListAlerts(r.Context(), store.AlertFilter{Page: page, Limit: limit})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list alerts", nil)
			return
		}
		if alerts == nil {
			alerts = []*models.Alert{}
		}

		response.Collection(w, alerts, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewGetAlertHandler returns an http.HandlerFunc for GET /api/v1/alerts/{alertID}.
func NewGetAlertHandler(s AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "alertID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"alertID must be a valid UUID", nil)
			return
		}

		alert, err := s.GetAlert(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Alert not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch alert", nil)
			return
		}

		response.JSON(w, alert)
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
