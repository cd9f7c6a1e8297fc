package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a persisted anomaly record produced by the detection pipeline.
// Exactly zero or one Alert exists per upload job, and frame_storage_key is
// globally unique: a second job reporting the same frame never creates a
// second row.
type Alert struct {
	ID              uuid.UUID      `db:"id"                json:"id"`
	Timestamp       time.Time      `db:"timestamp"         json:"timestamp"`
	AlertType       string         `db:"alert_type"        json:"alert_type"`
	Message         string         `db:"message"           json:"message"`
	FrameStorageKey string         `db:"frame_storage_key" json:"frame_storage_key"`
	Details         map[string]any `db:"details"           json:"details"`
	CreatedAt       time.Time      `db:"created_at"        json:"created_at"`
}
