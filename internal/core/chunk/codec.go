// Package chunk implements the cold-tier day-chunk codec: one gzip-compressed
// NDJSON object per (site, UTC day), one sample per line, deduplicated on
// (point, timestamp). Chunks are self-describing; a streaming reader decodes
// them line by line without holding the whole day in memory.
package chunk

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"vitals/internal/core/sample"
)

const (
	// maxLineBytes bounds a single NDJSON line during streaming decode
	maxLineBytes = 1 * 1024 * 1024

	initialScanBuf = 64 * 1024
)

// Row is the wire shape of one sample inside a chunk.
// Timestamps are carried in milliseconds on the wire (matching the upstream
// API) and floored back to seconds on decode.
type Row struct {
	Point       string  `json:"point"`
	TimestampMS int64   `json:"timestamp_ms"`
	Value       float64 `json:"value"`
}

// Key returns the deterministic object key for one site-day:
// timeseries/{site}/{YYYY}/{MM}/{DD}.ndjson.gz
func Key(site string, day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("timeseries/%s/%04d/%02d/%02d.ndjson.gz",
		site, day.Year(), int(day.Month()), day.Day())
}

// Stats summarizes an encode pass
type Stats struct {
	SampleCount    int
	OriginalSize   int64
	CompressedSize int64
}

// Encode serializes samples into a compressed chunk body. Input is deduped on
// (point, ts) with last occurrence winning, then sorted by (point, ts) so
// re-encoding the same set is byte-stable.
func Encode(xs []sample.Sample) ([]byte, Stats, error) {
	xs = sample.Dedup(xs)

	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	for _, s := range xs {
		if err := enc.Encode(Row{
			Point:       s.Point,
			TimestampMS: s.TS * 1000,
			Value:       s.Value,
		}); err != nil {
			return nil, Stats{}, err
		}
	}

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		return nil, Stats{}, err
	}
	if err := gz.Close(); err != nil {
		return nil, Stats{}, err
	}

	return out.Bytes(), Stats{
		SampleCount:    len(xs),
		OriginalSize:   int64(raw.Len()),
		CompressedSize: int64(out.Len()),
	}, nil
}

// Reader streams rows out of a chunk body
type Reader struct {
	gz   *gzip.Reader
	sc   *bufio.Scanner
	err  error
	rows int
}

// NewReader wraps a chunk body for streaming decode
func NewReader(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, initialScanBuf), maxLineBytes)
	return &Reader{gz: gz, sc: sc}, nil
}

// Next returns the next row; io.EOF when the chunk is exhausted.
// Malformed lines are skipped rather than failing the whole chunk.
func (rd *Reader) Next() (Row, error) {
	if rd.err != nil {
		return Row{}, rd.err
	}
	for {
		if !rd.sc.Scan() {
			if err := rd.sc.Err(); err != nil {
				rd.err = err
				return Row{}, err
			}
			rd.err = io.EOF
			return Row{}, io.EOF
		}
		line := rd.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		rd.rows++
		return row, nil
	}
}

// Rows returns the number of rows decoded so far
func (rd *Reader) Rows() int { return rd.rows }

// Close releases the gzip reader
func (rd *Reader) Close() error {
	if rd.gz != nil {
		return rd.gz.Close()
	}
	return nil
}

// Decode reads a whole chunk body back into samples for the given site
func Decode(site string, body []byte) ([]sample.Sample, error) {
	rd, err := NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rd.Close() }()

	var out []sample.Sample
	for {
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s, ok := sample.FromWire(site, row.Point, row.TimestampMS, row.Value)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
