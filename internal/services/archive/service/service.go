// Package service provides the archival compactor implementation
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	"vitals/internal/platform/logger"
	ptime "vitals/internal/platform/time"
	"vitals/internal/services/archive/domain"
	"vitals/internal/services/archive/guardrails"
	"vitals/internal/services/archive/repo"
)

// Config controls retention and concurrency
type Config struct {
	// RetentionDays is the hot-tier boundary; <=0 -> 20.
	// The query planner must read the SAME configured value.
	RetentionDays int

	// Workers bounds per-site parallelism; <=0 -> 2
	Workers int
}

func (c Config) withDefaults() Config {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 20
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	return c
}

// Service implements domain.RunnerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Repo]
	Chunks domain.ChunkStore
	State  domain.StatePort
	Cfg    Config

	// Rollups is optional; nil disables the analytics sink
	Rollups domain.RollupSink

	// Lease serializes one (site, day) move across instances
	Lease func(ctx context.Context, site string, day time.Time, do func(context.Context, repokit.Queryer) error) error

	// NowFn is a seam for tests; zero means time.Now
	NowFn func() time.Time
}

// New constructs the compactor
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	chunks domain.ChunkStore,
	state domain.StatePort,
	rollups domain.RollupSink,
	cfg Config,
) *Service {
	if db == nil {
		panic("archive.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("archive.Service requires a non nil Repo binder")
	}
	if chunks == nil {
		panic("archive.Service requires a non nil ChunkStore")
	}
	return &Service{
		DB:      db,
		Binder:  binder,
		Chunks:  chunks,
		State:   state,
		Rollups: rollups,
		Cfg:     cfg.withDefaults(),
		Lease:   guardrails.MakeAdvisoryLease(db),
	}
}

func (s *Service) now() time.Time {
	if s.NowFn != nil {
		return s.NowFn()
	}
	return time.Now()
}

// Cutoff returns the current retention boundary as unix seconds
func (s *Service) Cutoff() int64 {
	return s.now().UTC().AddDate(0, 0, -s.Cfg.RetentionDays).Unix()
}

// RunPass implements domain.RunnerPort. Sites run in a bounded pool; days
// within a site move serially, oldest first.
func (s *Service) RunPass(ctx context.Context) (domain.PassResult, error) {
	start := time.Now()
	res := domain.PassResult{
		Cutoff:    s.Cutoff(),
		StartedAt: s.now().UTC(),
	}

	var sites []string
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		sites, e = s.Binder.Bind(q).SitesBefore(ctx, res.Cutoff)
		return e
	})
	if err != nil {
		return res, err
	}
	res.Sites = len(sites)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.Cfg.Workers)

	for _, site := range sites {
		select {
		case <-ctx.Done():
			wg.Wait()
			return res, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(site string) {
			defer func() { <-sem; wg.Done() }()
			moved, rows, skipped, errs := s.runSite(ctx, site, res.Cutoff)
			mu.Lock()
			res.DaysMoved += moved
			res.RowsMoved += rows
			res.Skipped += skipped
			res.Errors += errs
			mu.Unlock()
		}(site)
	}
	wg.Wait()

	res.ElapsedMS = int(time.Since(start).Milliseconds())
	if s.State != nil {
		if err := s.State.SaveLastPass(ctx, res); err != nil {
			logger.C(ctx).Error().Err(err).Msg("archive: recording pass failed")
		}
	}
	logger.C(ctx).Info().
		Int("sites", res.Sites).
		Int("days_moved", res.DaysMoved).
		Int64("rows_moved", res.RowsMoved).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("archive: pass complete")
	return res, nil
}

func (s *Service) runSite(ctx context.Context, site string, cutoff int64) (moved int, rows int64, skipped, errs int) {
	ctx = logger.WithSite(ctx, site)

	var days []time.Time
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		days, e = s.Binder.Bind(q).DaysBefore(ctx, site, cutoff)
		return e
	})
	if err != nil {
		logger.C(ctx).Error().Err(err).Msg("archive: listing days failed")
		return 0, 0, 0, 1
	}

	for _, day := range days {
		move, err := s.moveDay(ctx, site, day, cutoff)
		switch {
		case errors.Is(err, guardrails.ErrLeaseHeld):
			skipped++
		case err != nil:
			logger.C(ctx).Error().Err(err).Str("day", ptime.DayKey(day)).Msg("archive: day move failed")
			errs++
		case move.RowsMoved > 0:
			moved++
			rows += move.RowsMoved
			logger.C(ctx).Info().
				Str("day", move.Day).
				Int64("rows_moved", move.RowsMoved).
				Int("chunk_samples", move.ChunkSamples).
				Int64("new_chunk_size", move.ChunkBytes).
				Msg("archive: day moved")
		}
	}
	return moved, rows, skipped, errs
}

// moveDay performs one crash-safe move under the (site, day) advisory lease:
// chunk write first, hot delete second. The chunk lands in the object store
// as soon as Append returns; only the hot delete waits for the wrapping
// transaction to commit. A crash between the two duplicates rows into the
// next pass, where the chunk merge dedups them.
func (s *Service) moveDay(ctx context.Context, site string, day time.Time, cutoff int64) (domain.DayMove, error) {
	move := domain.DayMove{Site: site, Day: ptime.DayKey(day)}
	var dayRows []sample.Sample

	err := s.Lease(ctx, site, day, func(ctx context.Context, q repokit.Queryer) error {
		r := s.Binder.Bind(q)
		var err error
		dayRows, err = r.RowsForDay(ctx, site, day, cutoff)
		if err != nil {
			return err
		}
		if len(dayRows) == 0 {
			return nil
		}

		count, size, err := s.Chunks.Append(ctx, site, day, dayRows)
		if err != nil {
			return err
		}
		move.ChunkSamples = count
		move.ChunkBytes = size

		deleted, err := r.DeleteDay(ctx, site, day, cutoff)
		if err != nil {
			return err
		}
		move.RowsMoved = deleted
		return nil
	})
	if err != nil {
		return move, err
	}

	// rollups are best-effort and sit outside the move transaction
	if s.Rollups != nil && len(dayRows) > 0 {
		if err := s.Rollups.WriteDaily(ctx, aggregate(site, day, dayRows)); err != nil {
			logger.C(ctx).Warn().Err(err).Str("day", move.Day).Msg("archive: rollup write failed")
		}
	}
	return move, nil
}

// LastPass implements domain.RunnerPort
func (s *Service) LastPass(ctx context.Context) (domain.PassResult, bool, error) {
	if s.State == nil {
		return domain.PassResult{}, false, nil
	}
	return s.State.LoadLastPass(ctx)
}

// aggregate folds one day of rows into per-point rollups
func aggregate(site string, day time.Time, xs []sample.Sample) []domain.Rollup {
	byPoint := map[string]*domain.Rollup{}
	for _, x := range xs {
		r, ok := byPoint[x.Point]
		if !ok {
			r = &domain.Rollup{Site: site, Point: x.Point, Day: day.UTC(), Min: x.Value, Max: x.Value}
			byPoint[x.Point] = r
		}
		if x.Value < r.Min {
			r.Min = x.Value
		}
		if x.Value > r.Max {
			r.Max = x.Value
		}
		r.Avg += x.Value // running sum; divided below
		r.Count++
	}
	out := make([]domain.Rollup, 0, len(byPoint))
	for _, r := range byPoint {
		if r.Count > 0 {
			r.Avg /= float64(r.Count)
		}
		out = append(out, *r)
	}
	return out
}
