package domain

import (
	"context"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/core/sample"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	// RunSync executes one sync for site; idempotent, lease-guarded
	RunSync(ctx context.Context, site string) (SyncResult, error)

	// Status returns the operator status snapshot for site
	Status(ctx context.Context, site string) (SyncStatus, error)
}

// StorageRepo is the hot-tier write surface the sync uses
type StorageRepo interface {
	// UpsertSamples writes a batch keyed on (site, point, ts); replays replace
	// values, making re-ingestion idempotent. Returns rows written.
	UpsertSamples(ctx context.Context, xs []sample.Sample) (int, error)
}

// StatePort persists sync state in the coordination store
type StatePort interface {
	// Watermark returns the last committed sync timestamp, ok=false when unset
	Watermark(ctx context.Context, site string) (int64, bool, error)

	// CommitWatermark advances the watermark; implementations must keep it
	// monotone (a lower value is a no-op)
	CommitWatermark(ctx context.Context, site string, ts int64) error

	// RecordError appends to the bounded, TTL-expiring error log
	RecordError(ctx context.Context, site string, msg string) error

	// RecentErrors returns the retained error log, newest first
	RecentErrors(ctx context.Context, site string) ([]SyncError, error)

	// AcquireLease takes the per-site run lease; ok=false when held elsewhere.
	// release is non-nil iff ok.
	AcquireLease(ctx context.Context, site string, ttl time.Duration) (release func(), ok bool, err error)
}

// Fetcher is the slice of the upstream client the sync needs
type Fetcher interface {
	FetchPage(ctx context.Context, site string, start, end time.Time, cursor string) (upstream.Page, error)
}
