package daemon

import (
	"github.com/adcondev/print-bridge/internal/printer"
)

// HealthResponse reports the state of the print bridge.
type HealthResponse struct {
	Status   string          `json:"status"`
	Worker   WorkerStatus    `json:"worker"`
	Printers printer.Summary `json:"printers"`
	Build    BuildInfo       `json:"build"`
	Clients  int             `json:"clients"`
	LogBytes int64           `json:"log_bytes"`
	Uptime   int             `json:"uptime_seconds"`
}

// WorkerStatus reports the print worker counters.
type WorkerStatus struct {
	Running       bool  `json:"running"`
	InFlight      int   `json:"in_flight"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
}

// BuildInfo describes the running build.
type BuildInfo struct {
	Env  string `json:"env"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// PrintersResponse is served by GET /printers.
type PrintersResponse struct {
	Status   string              `json:"status"`
	Printers []printer.DetailDTO `json:"printers"`
	Skipped  int                 `json:"skipped,omitempty"`
	Error    string              `json:"error,omitempty"`
}
