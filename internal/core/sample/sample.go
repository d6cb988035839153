// Package sample defines the normalized timeseries sample every tier stores
// and moves. Normalization from upstream wire shapes happens exactly once, at
// the adapter boundary; everything downstream operates on this form.
package sample

import (
	"math"
	"sort"
	"time"
)

// Sample is the atomic unit: one reading for one point at one second.
// Point is an opaque upstream identifier and is never rewritten.
type Sample struct {
	Site  string
	Point string
	TS    int64 // seconds since epoch, UTC
	Value float64
}

// Key identifies a sample within a site (the dedup key across tiers)
type Key struct {
	Point string
	TS    int64
}

// Key returns the dedup key for s
func (s Sample) Key() Key { return Key{Point: s.Point, TS: s.TS} }

// Day returns midnight UTC of the day containing s
func (s Sample) Day() time.Time {
	t := time.Unix(s.TS, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FromWire normalizes an upstream reading. Millisecond timestamps are floored
// to seconds; NaN and infinite values are rejected (ok=false).
func FromWire(site, point string, timestampMS int64, value float64) (Sample, bool) {
	if point == "" || timestampMS < 0 {
		return Sample{}, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Sample{}, false
	}
	return Sample{
		Site:  site,
		Point: point,
		TS:    timestampMS / 1000,
		Value: value,
	}, true
}

// Valid reports whether s could have come through FromWire
func (s Sample) Valid() bool {
	if s.Point == "" || s.TS < 0 {
		return false
	}
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// SortAsc orders samples by (point, ts) in place
// both the chunk codec and the query merge rely on this one ordering
func SortAsc(xs []Sample) {
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].Point != xs[j].Point {
			return xs[i].Point < xs[j].Point
		}
		return xs[i].TS < xs[j].TS
	})
}

// Dedup collapses samples sharing (point, ts), keeping the LAST occurrence.
// Input order decides the winner, so callers append the authoritative source
// after the one it should override. Returns a sorted slice.
func Dedup(xs []Sample) []Sample {
	if len(xs) == 0 {
		return xs
	}
	byKey := make(map[Key]Sample, len(xs))
	for _, s := range xs {
		byKey[s.Key()] = s
	}
	out := make([]Sample, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, s)
	}
	SortAsc(out)
	return out
}
