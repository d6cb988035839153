// Package repo implements the hot-tier storage repository for ETL sync
package repo

import (
	"context"
	"strings"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
)

// Repo is the bound repository interface
type Repo interface {
	UpsertSamples(ctx context.Context, xs []sample.Sample) (int, error)
}

// NewPG returns a binder producing PG-backed repos
func NewPG() repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(q repokit.Queryer) Repo { return pgRepo{q: q} })
}

type pgRepo struct{ q repokit.Queryer }

// UpsertSamples writes one multi-row INSERT .. ON CONFLICT DO UPDATE.
// The composite primary key (site, point, ts) is the dedup mechanism;
// replaying the same keys replaces values and stays idempotent.
func (r pgRepo) UpsertSamples(ctx context.Context, xs []sample.Sample) (int, error) {
	if len(xs) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO timeseries (site, point, ts, value) VALUES `)
	args := make([]any, 0, len(xs)*4)
	for i, s := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		n := i * 4
		sb.WriteString(placeholder4(n))
		args = append(args, s.Site, s.Point, s.TS, s.Value)
	}
	sb.WriteString(` ON CONFLICT (site, point, ts) DO UPDATE SET value = EXCLUDED.value`)

	tag, err := r.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, perr.FromPostgres(err, "etl: upsert samples")
	}
	return int(tag.RowsAffected()), nil
}

// placeholder4 renders ($n+1,$n+2,$n+3,$n+4) without fmt in the hot path
func placeholder4(n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for j := 1; j <= 4; j++ {
		if j > 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('$')
		sb.WriteString(itoa(n + j))
	}
	sb.WriteByte(')')
	return sb.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
