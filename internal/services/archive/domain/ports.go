package domain

import (
	"context"
	"time"

	"vitals/internal/core/sample"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	// RunPass archives every hot row older than the retention cutoff
	RunPass(ctx context.Context) (PassResult, error)

	// LastPass returns the most recent recorded pass; ok=false when none
	LastPass(ctx context.Context) (PassResult, bool, error)
}

// StorageRepo is the hot-tier surface the compactor scans and prunes
type StorageRepo interface {
	// SitesBefore lists sites holding rows with ts < cutoff
	SitesBefore(ctx context.Context, cutoff int64) ([]string, error)

	// DaysBefore lists distinct UTC days for site with rows ts < cutoff,
	// oldest first
	DaysBefore(ctx context.Context, site string, cutoff int64) ([]time.Time, error)

	// RowsForDay reads the day's rows bounded by the cutoff
	RowsForDay(ctx context.Context, site string, day time.Time, cutoff int64) ([]sample.Sample, error)

	// DeleteDay removes the day's rows bounded by the cutoff in one statement
	// (the per-day move stays atomic); returns rows deleted
	DeleteDay(ctx context.Context, site string, day time.Time, cutoff int64) (int64, error)
}

// ChunkStore is the cold-tier merge-write surface
type ChunkStore interface {
	Append(ctx context.Context, site string, day time.Time, xs []sample.Sample) (count int, size int64, err error)
}

// RollupSink receives daily per-point aggregates after a successful move.
// Optional: a nil sink disables rollups.
type RollupSink interface {
	WriteDaily(ctx context.Context, rollups []Rollup) error
}

// StatePort records pass results for /status
type StatePort interface {
	SaveLastPass(ctx context.Context, p PassResult) error
	LoadLastPass(ctx context.Context) (PassResult, bool, error)
}
