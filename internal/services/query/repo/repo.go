// Package repo implements the hot-tier read repository for the query router
package repo

import (
	"context"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/store"
)

// Repo is the bound repository interface
type Repo interface {
	Scan(ctx context.Context, site string, points []string, start, end int64) ([]sample.Sample, error)
}

// NewPG returns a binder producing PG-backed repos
func NewPG() repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(q repokit.Queryer) Repo { return pgRepo{q: q} })
}

type pgRepo struct{ q repokit.Queryer }

// Scan implements Repo with a half-open [start, end) range over the
// composite primary key
func (r pgRepo) Scan(ctx context.Context, site string, points []string, start, end int64) ([]sample.Sample, error) {
	if len(points) == 0 || end <= start {
		return nil, nil
	}
	out, err := store.Many(ctx, r.q, func(row store.Row) (sample.Sample, error) {
		var s sample.Sample
		err := row.Scan(&s.Point, &s.TS, &s.Value)
		s.Site = site
		return s, err
	}, `SELECT point, ts, value
	      FROM timeseries
	     WHERE site = $1 AND point = ANY($2) AND ts >= $3 AND ts < $4
	     ORDER BY point, ts`, site, points, start, end)
	return out, perr.FromPostgres(err, "query: hot scan")
}
