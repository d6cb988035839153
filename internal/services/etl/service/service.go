// Package service provides the ETL synchronizer implementation
package service

import (
	"context"
	"math/rand"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/logger"
	"vitals/internal/services/etl/domain"
	"vitals/internal/services/etl/repo"
)

// Config holds tuning for the synchronizer
type Config struct {
	// LookbackBuffer is subtracted from the watermark on incremental runs
	// to cover late-arriving samples and clock skew; <=0 -> 90m
	LookbackBuffer time.Duration

	// FirstSyncWindow bootstraps a site with no usable watermark; <=0 -> 24h
	FirstSyncWindow time.Duration

	// StaleAfter forces the bootstrap window when the watermark is older
	// than this; <=0 -> 7d
	StaleAfter time.Duration

	// BatchSize caps one hot-store upsert; <=0 -> 1000
	BatchSize int

	// MaxPagesPerSync is the per-run safety cap on upstream pages; <=0 -> 50
	MaxPagesPerSync int

	// LeaseTTL bounds how long a crashed run can block the site; <=0 -> 4m
	LeaseTTL time.Duration

	// RetryBase is the base delay for hot-store write retries; <=0 -> 250ms
	RetryBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.LookbackBuffer <= 0 {
		c.LookbackBuffer = 90 * time.Minute
	}
	if c.FirstSyncWindow <= 0 {
		c.FirstSyncWindow = 24 * time.Hour
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 7 * 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.MaxPagesPerSync <= 0 {
		c.MaxPagesPerSync = 50
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 4 * time.Minute
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 250 * time.Millisecond
	}
	return c
}

// Service implements domain.RunnerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Repo]
	Fetch  domain.Fetcher
	State  domain.StatePort
	Cfg    Config

	// NowFn is a seam for tests; zero means time.Now
	NowFn func() time.Time
}

// New constructs the synchronizer
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	fetch domain.Fetcher,
	state domain.StatePort,
	cfg Config,
) *Service {
	if db == nil {
		panic("etl.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("etl.Service requires a non nil Repo binder")
	}
	if fetch == nil {
		panic("etl.Service requires a non nil Fetcher")
	}
	if state == nil {
		panic("etl.Service requires a non nil StatePort")
	}
	return &Service{DB: db, Binder: binder, Fetch: fetch, State: state, Cfg: cfg.withDefaults()}
}

func (s *Service) now() time.Time {
	if s.NowFn != nil {
		return s.NowFn()
	}
	return time.Now()
}

// RunSync implements domain.RunnerPort. One run per site at a time: the
// coordination-store lease suppresses overlapping ticks; losing the lease is
// a clean skip, not an error.
func (s *Service) RunSync(ctx context.Context, site string) (domain.SyncResult, error) {
	ctx = logger.WithSite(ctx, site)
	start := time.Now()

	release, ok, err := s.State.AcquireLease(ctx, site, s.Cfg.LeaseTTL)
	if err != nil {
		return domain.SyncResult{Site: site}, err
	}
	if !ok {
		logger.C(ctx).Debug().Msg("etl: lease held elsewhere, skipping tick")
		return domain.SyncResult{Site: site, Skipped: true}, nil
	}
	defer release()

	res, err := s.runLeased(ctx, site)
	res.ElapsedMS = int(time.Since(start).Milliseconds())
	if err != nil {
		// state stays put; next tick retries the same window
		if rerr := s.State.RecordError(ctx, site, err.Error()); rerr != nil {
			logger.C(ctx).Error().Err(rerr).Msg("etl: recording error failed")
		}
	}
	return res, err
}

func (s *Service) runLeased(ctx context.Context, site string) (domain.SyncResult, error) {
	res := domain.SyncResult{Site: site}

	win, err := s.window(ctx, site)
	if err != nil {
		return res, err
	}
	res.FirstSync = win.Kind == domain.WindowFirstSync

	// fetching: drain the cursor within the page budget
	var (
		buf      []sample.Sample
		cursor   string
		received int
	)
	for {
		page, err := s.Fetch.FetchPage(ctx, site, win.Start, win.End, cursor)
		if err != nil {
			return res, err
		}
		res.PagesFetched++
		received += page.Received
		buf = append(buf, page.Samples...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		if res.PagesFetched >= s.Cfg.MaxPagesPerSync {
			logger.C(ctx).Warn().
				Int("pages", res.PagesFetched).
				Msg("etl: page budget hit, remainder picked up next tick")
			break
		}
	}

	// An empty first page on a bootstrap run smells like a dead token or an
	// upstream outage, not an empty building: fail soft so the watermark
	// never gets planted on top of silence.
	if received == 0 {
		if win.Kind == domain.WindowFirstSync {
			return res, perr.Unavailablef("etl: first sync returned no samples for %s", site)
		}
		// incremental run, 200 OK, cursor drained: upstream confirmed the
		// range is empty; move the watermark so the window stays bounded
		if err := s.State.CommitWatermark(ctx, site, win.End.Unix()); err != nil {
			return res, err
		}
		res.Watermark = win.End.Unix()
		logger.C(ctx).Debug().Msg("etl: confirmed empty range")
		return res, nil
	}

	// writing: batched upserts with retry and bisection on flaky failures
	var highest int64
	for i := 0; i < len(buf); i += s.Cfg.BatchSize {
		end := min(i+s.Cfg.BatchSize, len(buf))
		n, err := s.upsertBatchRobust(ctx, buf[i:end])
		res.SamplesInserted += n
		if err != nil {
			return res, err
		}
		for _, smp := range buf[i:end] {
			if smp.TS > highest {
				highest = smp.TS
			}
		}
	}

	// committing-watermark: only after every batch landed
	if err := s.State.CommitWatermark(ctx, site, highest); err != nil {
		return res, err
	}
	res.Watermark = highest

	logger.C(ctx).Info().
		Int("inserted", res.SamplesInserted).
		Int("pages", res.PagesFetched).
		Int64("watermark", highest).
		Str("window", string(win.Kind)).
		Msg("etl: sync complete")
	return res, nil
}

// window picks the fetch range per the lookback policy: a short overlap
// buffer on incremental runs, a 24h bootstrap when the watermark is missing
// or stale
func (s *Service) window(ctx context.Context, site string) (domain.Window, error) {
	now := s.now().UTC()
	wm, ok, err := s.State.Watermark(ctx, site)
	if err != nil {
		return domain.Window{}, err
	}
	if !ok || now.Sub(time.Unix(wm, 0)) > s.Cfg.StaleAfter {
		return domain.Window{
			Start: now.Add(-s.Cfg.FirstSyncWindow),
			End:   now,
			Kind:  domain.WindowFirstSync,
		}, nil
	}
	return domain.Window{
		Start: time.Unix(wm, 0).UTC().Add(-s.Cfg.LookbackBuffer),
		End:   now,
		Kind:  domain.WindowIncremental,
	}, nil
}

// Status implements domain.RunnerPort
func (s *Service) Status(ctx context.Context, site string) (domain.SyncStatus, error) {
	wm, _, err := s.State.Watermark(ctx, site)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	errs, err := s.State.RecentErrors(ctx, site)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	st := domain.SyncStatus{
		Site:         site,
		LastSyncTS:   wm,
		RecentErrors: errs,
	}
	if wm > 0 {
		st.LastSuccessAge = int64(s.now().UTC().Sub(time.Unix(wm, 0)).Seconds())
	}
	return st, nil
}

// upsertBatchRobust writes a slice with retries; if it still fails with a
// retryable error it bisects the batch and attempts each half, guaranteeing
// eventual progress (down to size 1) for flaky failures
func (s *Service) upsertBatchRobust(ctx context.Context, batch []sample.Sample) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	const maxAttempts = 4

	tryOnce := func(xs []sample.Sample) (int, error) {
		var n int
		err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			i, e := s.Binder.Bind(q).UpsertSamples(ctx, xs)
			if e == nil {
				n = i
			}
			return e
		})
		return n, err
	}

	var last error
	var total int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		n, err := tryOnce(batch)
		total += n
		if err == nil {
			return total, nil
		}
		last = err
		if !perr.Retryable(err) || attempt == maxAttempts {
			break
		}
		// backoff with jitter, capped at 10s
		d := min(s.Cfg.RetryBase<<(attempt-1), 10*time.Second)
		sleep := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		if se := sleepCtx(ctx, sleep); se != nil {
			return total, err
		}
	}

	if !perr.Retryable(last) {
		return total, last
	}
	if len(batch) == 1 {
		return total, last
	}
	mid := len(batch) / 2
	lN, lErr := s.upsertBatchRobust(ctx, batch[:mid])
	if lErr != nil {
		return total + lN, lErr
	}
	rN, rErr := s.upsertBatchRobust(ctx, batch[mid:])
	return total + lN + rN, rErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
