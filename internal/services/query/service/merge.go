package service

import (
	"sort"

	"vitals/internal/core/sample"
	"vitals/internal/services/query/domain"
)

// mergeSeries folds cold and hot rows into one series map keyed by point.
// Collisions on (point, ts) keep the hot value: hot is authoritative for the
// overlap region. Every requested point gets an entry, empty when absent.
// Output series are strictly ascending in ts with no duplicates.
func mergeSeries(points []string, coldRows, hotRows []sample.Sample) map[string][]domain.SeriesPoint {
	type key struct {
		point string
		ts    int64
	}
	byKey := make(map[key]float64, len(coldRows)+len(hotRows))
	for _, r := range coldRows {
		byKey[key{r.Point, r.TS}] = r.Value
	}
	for _, r := range hotRows {
		byKey[key{r.Point, r.TS}] = r.Value // hot wins on tie
	}

	out := make(map[string][]domain.SeriesPoint, len(points))
	for _, p := range points {
		out[p] = []domain.SeriesPoint{}
	}
	for k, v := range byKey {
		series, ok := out[k.point]
		if !ok {
			// row for a point outside the request; callers filter upstream,
			// this is just belt and braces
			continue
		}
		out[k.point] = append(series, domain.SeriesPoint{TS: k.ts, Value: v})
	}
	for p := range out {
		s := out[p]
		sort.Slice(s, func(i, j int) bool { return s[i].TS < s[j].TS })
		out[p] = s
	}
	return out
}
