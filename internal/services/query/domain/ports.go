package domain

import (
	"context"
	"time"

	"vitals/internal/core/sample"
)

// QueryPort is the public port exposed by the module
type QueryPort interface {
	Query(ctx context.Context, in Input) (Result, error)
}

// HotRepo is the hot-tier read surface
type HotRepo interface {
	// Scan returns rows for site/points within [start, end), any order
	Scan(ctx context.Context, site string, points []string, start, end int64) ([]sample.Sample, error)
}

// ColdReader fetches and decodes day chunks
type ColdReader interface {
	// ReadDay returns the decoded chunk for (site, day); empty when absent
	ReadDay(ctx context.Context, site string, day time.Time) ([]sample.Sample, error)
}

// CachePort is the TTL result cache
type CachePort interface {
	// Get returns the cached payload; ok=false on miss
	Get(ctx context.Context, key string) (map[string][]SeriesPoint, bool, error)

	// Set stores the payload with the given ttl
	Set(ctx context.Context, key string, series map[string][]SeriesPoint, ttl time.Duration) error
}

// Proxy is the legacy escape hatch: fetch the range straight from upstream
type Proxy interface {
	FetchRange(ctx context.Context, site string, points []string, start, end int64) (map[string][]SeriesPoint, error)
}
