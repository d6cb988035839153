// Package domain holds the core types and ports for the ETL synchronizer
package domain

import "time"

// SyncResult reports one completed (or skipped) sync run for a site
type SyncResult struct {
	Site            string `json:"site"`
	SamplesInserted int    `json:"samples_inserted"`
	PagesFetched    int    `json:"pages_fetched"`
	Watermark       int64  `json:"watermark"`

	// FirstSync is set when the watermark was missing or stale and the
	// bootstrap window was used
	FirstSync bool `json:"first_sync,omitempty"`

	// Skipped is set when another instance held the site lease
	Skipped bool `json:"skipped,omitempty"`

	ElapsedMS int `json:"elapsed_ms"`
}

// SyncError is one operator-visible failure record
type SyncError struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// SyncStatus is the per-site status snapshot served on /status
type SyncStatus struct {
	Site           string      `json:"site"`
	LastSyncTS     int64       `json:"last_sync_ts"`
	LastSuccessAge int64       `json:"last_success_age_seconds"`
	RecentErrors   []SyncError `json:"recent_errors"`
}

// WindowKind tags how the sync window was chosen
type WindowKind string

const (
	// WindowFirstSync is the 24h bootstrap window
	WindowFirstSync WindowKind = "first_sync"

	// WindowIncremental is watermark minus lookback buffer
	WindowIncremental WindowKind = "incremental"
)

// Window is the resolved fetch range for one run
type Window struct {
	Start time.Time
	End   time.Time
	Kind  WindowKind
}
