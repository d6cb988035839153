// Package cold adapts the chunk codec and object store into the query
// router's cold-tier read port
package cold

import (
	"context"
	"time"

	"vitals/internal/core/chunk"
	"vitals/internal/core/sample"
	"vitals/internal/platform/store/obj"
)

// Reader implements domain.ColdReader
type Reader struct {
	chunks *chunk.Writer
}

// New wires a Reader over the object store
func New(st obj.Store) *Reader {
	return &Reader{chunks: chunk.NewWriter(st)}
}

// ReadDay implements domain.ColdReader; a missing chunk is an empty day,
// not an error
func (r *Reader) ReadDay(ctx context.Context, site string, day time.Time) ([]sample.Sample, error) {
	return r.chunks.Read(ctx, site, day)
}
