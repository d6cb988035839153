package domain

import (
	"context"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/core/sample"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	// Start creates a job for the inclusive day range; one running job at a
	// time, whatever its site
	Start(ctx context.Context, site, startDate, endDate string) (Progress, error)

	// Tick processes up to the configured page budget and persists state.
	// Idempotent: safe to call from a scheduler and an operator concurrently.
	Tick(ctx context.Context) (TickResult, error)

	// Status returns the snapshot of the active (or most recent) job
	Status(ctx context.Context) (Progress, error)
}

// StatePort persists job state in the coordination store
type StatePort interface {
	// SaveJob writes the full snapshot atomically (backfill:{job}:state)
	SaveJob(ctx context.Context, j *Job) error

	// LoadJob reads one job; ok=false when absent
	LoadJob(ctx context.Context, id string) (*Job, bool, error)

	// ActiveJob returns the currently tracked job id; ok=false when none
	ActiveJob(ctx context.Context) (string, bool, error)

	// SetActiveJob points the tracker at id; empty id clears it
	SetActiveJob(ctx context.Context, id string) error
}

// ChunkStore is the cold-tier append surface
type ChunkStore interface {
	// Append merges samples into the (site, day) chunk; idempotent on replay
	Append(ctx context.Context, site string, day time.Time, xs []sample.Sample) (count int, size int64, err error)
}

// Fetcher is the slice of the upstream client backfill needs
type Fetcher interface {
	FetchPage(ctx context.Context, site string, start, end time.Time, cursor string) (upstream.Page, error)
}
