package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/itsSabbir/anomaly-detection-system-2-sub000/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// CreateAlert inserts a new alert. Returns ErrDuplicateKey when an alert
	// with the same frame_storage_key already exists.
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	GetAlertByFrameKey(ctx context.Context, frameKey string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, int, error)
}

// AlertFilter controls pagination for ListAlerts. Results are ordered by
// the database-assigned timestamp, newest first.
type AlertFilter struct {
	Page  int
	Limit int
}
