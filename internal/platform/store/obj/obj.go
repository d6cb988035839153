// Package obj provides the cold-tier object store seam.
// Day chunks are stored as whole objects addressed by deterministic keys;
// writes replace the object and carry chunk metadata alongside the bytes.
package obj

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned by Get for absent keys
var ErrNotFound = errors.New("obj: not found")

// Meta is the custom metadata attached to each chunk object
type Meta struct {
	SampleCount    int
	CompressedSize int64
	OriginalSize   int64
	CreatedAt      time.Time
}

// Store is the object store surface used by backfill, archival, and query
type Store interface {
	// Get returns the object body and metadata; ErrNotFound when absent
	Get(ctx context.Context, key string) ([]byte, Meta, error)

	// Put replaces the object at key
	Put(ctx context.Context, key string, body []byte, meta Meta) error

	// Head returns metadata without the body; ok=false when absent
	Head(ctx context.Context, key string) (Meta, bool, error)
}

// metadata header names; lowercase because s3 lowercases user metadata keys
const (
	metaSampleCount    = "sample_count"
	metaCompressedSize = "compressed_size"
	metaOriginalSize   = "original_size"
	metaCreatedAt      = "created_at"
)

func (m Meta) toHeaders() map[string]string {
	return map[string]string{
		metaSampleCount:    strconv.Itoa(m.SampleCount),
		metaCompressedSize: strconv.FormatInt(m.CompressedSize, 10),
		metaOriginalSize:   strconv.FormatInt(m.OriginalSize, 10),
		metaCreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func metaFromHeaders(h map[string]string) Meta {
	var m Meta
	if v, err := strconv.Atoi(h[metaSampleCount]); err == nil {
		m.SampleCount = v
	}
	if v, err := strconv.ParseInt(h[metaCompressedSize], 10, 64); err == nil {
		m.CompressedSize = v
	}
	if v, err := strconv.ParseInt(h[metaOriginalSize], 10, 64); err == nil {
		m.OriginalSize = v
	}
	if t, err := time.Parse(time.RFC3339, h[metaCreatedAt]); err == nil {
		m.CreatedAt = t
	}
	return m
}
