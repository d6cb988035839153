// Package proxy implements the legacy escape hatch: answer a query straight
// from the upstream paginated API, bypassing both tiers
package proxy

import (
	"context"
	"sort"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/services/query/domain"
)

// maxPages bounds a single proxied range so a bad request cannot walk the
// upstream forever
const maxPages = 50

// Upstream implements domain.Proxy over the shared client
type Upstream struct {
	client *upstream.Client
}

// New wires the proxy
func New(client *upstream.Client) *Upstream { return &Upstream{client: client} }

// FetchRange implements domain.Proxy
func (p *Upstream) FetchRange(
	ctx context.Context,
	site string,
	points []string,
	start, end int64,
) (map[string][]domain.SeriesPoint, error) {
	wanted := make(map[string]bool, len(points))
	out := make(map[string][]domain.SeriesPoint, len(points))
	for _, pt := range points {
		wanted[pt] = true
		out[pt] = []domain.SeriesPoint{}
	}

	cursor := ""
	for page := 0; page < maxPages; page++ {
		pg, err := p.client.FetchPage(ctx, site,
			time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC(), cursor)
		if err != nil {
			return nil, err
		}
		for _, s := range pg.Samples {
			if !wanted[s.Point] || s.TS < start || s.TS >= end {
				continue
			}
			out[s.Point] = append(out[s.Point], domain.SeriesPoint{TS: s.TS, Value: s.Value})
		}
		if pg.NextCursor == "" {
			break
		}
		cursor = pg.NextCursor
	}

	for pt := range out {
		s := out[pt]
		sort.Slice(s, func(i, j int) bool { return s[i].TS < s[j].TS })
		out[pt] = dedupAsc(s)
	}
	return out, nil
}

// dedupAsc drops repeated timestamps from a sorted series, keeping the last
func dedupAsc(s []domain.SeriesPoint) []domain.SeriesPoint {
	if len(s) < 2 {
		return s
	}
	kept := s[:1]
	for _, p := range s[1:] {
		if p.TS == kept[len(kept)-1].TS {
			kept[len(kept)-1] = p
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
