// Package guardrails holds cross cutting safety helpers for archival
package guardrails

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"time"

	"vitals/internal/modkit/repokit"
	"vitals/internal/platform/store"
)

// ErrLeaseHeld signals another worker owns the (site, day) move
var ErrLeaseHeld = errors.New("archive: site-day lease already held")

// MakeAdvisoryLease returns a function that wraps work in a tx-scoped
// advisory lock on (site, day). If another worker holds the lock it returns
// ErrLeaseHeld so the caller can skip cleanly.
func MakeAdvisoryLease(db repokit.TxRunner) func(context.Context, string, time.Time, func(context.Context, repokit.Queryer) error) error {
	return func(ctx context.Context, site string, day time.Time, do func(context.Context, repokit.Queryer) error) error {
		key := advisoryKey(site, day)

		return db.Tx(ctx, func(q store.RowQuerier) error {
			var ok bool
			if err := q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, key).Scan(&ok); err != nil {
				return err
			}
			if !ok {
				return ErrLeaseHeld
			}
			// lock is held for the duration of this transaction
			return do(ctx, q)
		})
	}
}

func advisoryKey(site string, day time.Time) int64 {
	sum := sha1.Sum([]byte(site + "|" + day.UTC().Format("2006-01-02")))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
