package storage

import (
	"time"

	"github.com/cockroachdb/errors"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	Keep        int           // file only; 0 keeps everything
}

// RunRecord is one job invocation. Keep it compact and schema-stable.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Recurrence string    `json:"recurrence"`
	Started    time.Time `json:"started"`
	TookMS     int64     `json:"took_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	NextDue    time.Time `json:"next_due"`
}
