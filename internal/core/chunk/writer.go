package chunk

import (
	"context"
	"errors"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/platform/store/obj"
)

// Writer implements the logical append over a whole-object store:
// read existing chunk, merge with incoming samples, dedup, rewrite.
// Both backfill and archival move data through this one path so their
// writes stay idempotent against each other.
type Writer struct {
	Store obj.Store

	// Now is a seam for tests; zero means time.Now
	Now func() time.Time
}

// NewWriter wires a Writer over the given store
func NewWriter(st obj.Store) *Writer { return &Writer{Store: st} }

// Append merges xs into the chunk for (site, day) and rewrites the object.
// Incoming samples win over existing rows on (point, ts) collisions.
// Returns the post-merge sample count and compressed size.
func (w *Writer) Append(ctx context.Context, site string, day time.Time, xs []sample.Sample) (int, int64, error) {
	key := Key(site, day)

	existing, _, err := w.Store.Get(ctx, key)
	var have []sample.Sample
	switch {
	case err == nil:
		have, err = Decode(site, existing)
		if err != nil {
			return 0, 0, err
		}
	case errors.Is(err, obj.ErrNotFound):
		// first write for this day
	default:
		return 0, 0, err
	}

	// existing first, incoming last: Dedup keeps the last occurrence
	merged := make([]sample.Sample, 0, len(have)+len(xs))
	merged = append(merged, have...)
	merged = append(merged, xs...)

	body, stats, err := Encode(merged)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	err = w.Store.Put(ctx, key, body, obj.Meta{
		SampleCount:    stats.SampleCount,
		CompressedSize: stats.CompressedSize,
		OriginalSize:   stats.OriginalSize,
		CreatedAt:      now().UTC(),
	})
	if err != nil {
		return 0, 0, err
	}
	return stats.SampleCount, stats.CompressedSize, nil
}

// Read fetches and decodes one day chunk; empty slice when the day is absent
func (w *Writer) Read(ctx context.Context, site string, day time.Time) ([]sample.Sample, error) {
	body, _, err := w.Store.Get(ctx, Key(site, day))
	if errors.Is(err, obj.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(site, body)
}
