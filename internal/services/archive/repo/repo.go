// Package repo implements the hot-tier repository for the archival compactor
package repo

import (
	"context"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/store"
)

// Repo is the bound repository interface
type Repo interface {
	SitesBefore(ctx context.Context, cutoff int64) ([]string, error)
	DaysBefore(ctx context.Context, site string, cutoff int64) ([]time.Time, error)
	RowsForDay(ctx context.Context, site string, day time.Time, cutoff int64) ([]sample.Sample, error)
	DeleteDay(ctx context.Context, site string, day time.Time, cutoff int64) (int64, error)
}

// NewPG returns a binder producing PG-backed repos
func NewPG() repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(q repokit.Queryer) Repo { return pgRepo{q: q} })
}

type pgRepo struct{ q repokit.Queryer }

// SitesBefore implements Repo
func (r pgRepo) SitesBefore(ctx context.Context, cutoff int64) ([]string, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (string, error) {
		var s string
		err := row.Scan(&s)
		return s, err
	}, `SELECT DISTINCT site FROM timeseries WHERE ts < $1 ORDER BY site`, cutoff)
	return out, perr.FromPostgres(err, "archive: sites before cutoff")
}

// DaysBefore implements Repo. Days are derived from the integer ts so the
// grouping matches the chunk key exactly.
func (r pgRepo) DaysBefore(ctx context.Context, site string, cutoff int64) ([]time.Time, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (time.Time, error) {
		var epochDay int64
		if err := row.Scan(&epochDay); err != nil {
			return time.Time{}, err
		}
		return time.Unix(epochDay*86400, 0).UTC(), nil
	}, `SELECT DISTINCT ts / 86400 AS epoch_day
	      FROM timeseries
	     WHERE site = $1 AND ts < $2
	     ORDER BY epoch_day`, site, cutoff)
	return out, perr.FromPostgres(err, "archive: days before cutoff")
}

// RowsForDay implements Repo
func (r pgRepo) RowsForDay(ctx context.Context, site string, day time.Time, cutoff int64) ([]sample.Sample, error) {
	dayStart := day.UTC().Unix()
	dayEnd := dayStart + 86400
	if cutoff < dayEnd {
		dayEnd = cutoff
	}
	out, err := store.Many(ctx, r.q, func(row store.Row) (sample.Sample, error) {
		var s sample.Sample
		err := row.Scan(&s.Point, &s.TS, &s.Value)
		s.Site = site
		return s, err
	}, `SELECT point, ts, value
	      FROM timeseries
	     WHERE site = $1 AND ts >= $2 AND ts < $3
	     ORDER BY point, ts`, site, dayStart, dayEnd)
	return out, perr.FromPostgres(err, "archive: rows for day")
}

// DeleteDay implements Repo
func (r pgRepo) DeleteDay(ctx context.Context, site string, day time.Time, cutoff int64) (int64, error) {
	dayStart := day.UTC().Unix()
	dayEnd := dayStart + 86400
	if cutoff < dayEnd {
		dayEnd = cutoff
	}
	tag, err := r.q.Exec(ctx,
		`DELETE FROM timeseries WHERE site = $1 AND ts >= $2 AND ts < $3`,
		site, dayStart, dayEnd)
	if err != nil {
		return 0, perr.FromPostgres(err, "archive: delete day")
	}
	return tag.RowsAffected(), nil
}
