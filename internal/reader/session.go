package reader

import (
	"time"

	"github.com/zombor/card-reader/internal/card"
)

// Session statuses
const (
	StatusScanning = "scanning"
	StatusResolved = "resolved"
	StatusStopped  = "stopped"
)

// SessionLog is the audit entry of a capture session. It never holds card data.
type SessionLog struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	FramesProcessed int       `json:"frames_processed"`
	Emissions       int       `json:"emissions"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionView is the current state of a capture session as returned to clients
type SessionView struct {
	SessionLog
	State  card.SessionState `json:"state"`
	Record *card.Record      `json:"record,omitempty"`
}
