// Package service provides the query router implementation: plan, fan out,
// merge, cache
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vitals/internal/core/sample"
	"vitals/internal/modkit/repokit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/logger"
	ptime "vitals/internal/platform/time"
	"vitals/internal/services/query/cache"
	"vitals/internal/services/query/domain"
	"vitals/internal/services/query/repo"
)

// Config holds tuning for the router
type Config struct {
	// RetentionDays is the hot boundary; MUST come from the same config key
	// the archiver reads; <=0 -> 20
	RetentionDays int

	// MaxRangeDays rejects over-wide queries; <=0 -> 365
	MaxRangeDays int

	// MaxPoints rejects over-wide point sets; <=0 -> 50
	MaxPoints int

	// ColdParallelism bounds concurrent chunk fetches; <=0 -> 8
	ColdParallelism int
}

func (c Config) withDefaults() Config {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 20
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = 365
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = 50
	}
	if c.ColdParallelism <= 0 {
		c.ColdParallelism = 8
	}
	return c
}

// Service implements domain.QueryPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Repo]
	Cold   domain.ColdReader
	Cache  domain.CachePort
	Proxy  domain.Proxy
	Cfg    Config

	// NowFn is a seam for tests; zero means time.Now
	NowFn func() time.Time
}

// New constructs the router. Cache and Proxy are optional (nil disables).
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	cold domain.ColdReader,
	qcache domain.CachePort,
	proxy domain.Proxy,
	cfg Config,
) *Service {
	if db == nil {
		panic("query.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("query.Service requires a non nil Repo binder")
	}
	if cold == nil {
		panic("query.Service requires a non nil ColdReader")
	}
	return &Service{DB: db, Binder: binder, Cold: cold, Cache: qcache, Proxy: proxy, Cfg: cfg.withDefaults()}
}

func (s *Service) now() time.Time {
	if s.NowFn != nil {
		return s.NowFn()
	}
	return time.Now()
}

// HotBoundary returns now - retention as unix seconds
func (s *Service) HotBoundary() int64 {
	return s.now().UTC().AddDate(0, 0, -s.Cfg.RetentionDays).Unix()
}

// Query implements domain.QueryPort
func (s *Service) Query(ctx context.Context, in domain.Input) (domain.Result, error) {
	start := time.Now()

	if err := s.validate(in); err != nil {
		return domain.Result{}, err
	}

	// escape hatch: proxy upstream directly, no planner, no cache
	if !in.UseRouting {
		return s.legacy(ctx, in, start)
	}

	// cache read happens before planning
	key := cache.Key(in.Site, in.Points, in.Start, in.End)
	if s.Cache != nil {
		if series, ok, err := s.Cache.Get(ctx, key); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("query: cache read failed")
		} else if ok {
			return domain.Result{
				Series: series,
				Meta: domain.Meta{
					DataSource:   domain.SourceCache,
					Strategy:     s.planOnly(in).Strategy,
					CacheStatus:  domain.CacheHit,
					ProcessingMS: time.Since(start).Milliseconds(),
				},
			}, nil
		}
	}

	plan := s.planOnly(in)

	hotRows, coldRows, err := s.execute(ctx, in, plan)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Result{}, perr.Deadlinef("query: deadline exceeded")
		}
		return domain.Result{}, err
	}

	series := mergeSeries(in.Points, coldRows, hotRows)

	res := domain.Result{
		Series: series,
		Meta: domain.Meta{
			DataSource:   sourceFor(plan.Strategy),
			Strategy:     plan.Strategy,
			CacheStatus:  domain.CacheBypass,
			ProcessingMS: time.Since(start).Milliseconds(),
		},
	}

	// cache write happens after a successful merge
	if s.Cache != nil {
		res.Meta.CacheStatus = domain.CacheMiss
		age := s.now().UTC().Sub(time.Unix(in.End, 0))
		if err := s.Cache.Set(ctx, key, series, cache.TTLForAge(age)); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("query: cache write failed")
		}
	}
	return res, nil
}

func (s *Service) validate(in domain.Input) error {
	if in.Site == "" {
		return perr.Validationf("site is required")
	}
	if len(in.Points) == 0 {
		return perr.Validationf("at least one point is required")
	}
	if len(in.Points) > s.Cfg.MaxPoints {
		return perr.Validationf("too many points: %d > %d", len(in.Points), s.Cfg.MaxPoints)
	}
	if in.End < in.Start {
		return perr.Validationf("end_time before start_time")
	}
	if in.End-in.Start > int64(s.Cfg.MaxRangeDays)*86400 {
		return perr.Validationf("range exceeds %d days", s.Cfg.MaxRangeDays)
	}
	return nil
}

func (s *Service) planOnly(in domain.Input) domain.Plan {
	return PlanRange(in.Start, in.End, s.HotBoundary())
}

// execute runs the planned sub-queries; for SPLIT both tiers run in parallel
func (s *Service) execute(ctx context.Context, in domain.Input, plan domain.Plan) (hot, cold []sample.Sample, err error) {
	switch plan.Strategy {
	case domain.StrategyHotOnly:
		hot, err = s.queryHot(ctx, in.Site, in.Points, plan.HotStart, plan.HotEnd)
		return hot, nil, err

	case domain.StrategyColdOnly:
		cold, err = s.queryCold(ctx, in.Site, in.Points, plan.ColdStart, plan.ColdEnd)
		return nil, cold, err

	case domain.StrategySplit:
		var wg sync.WaitGroup
		var hotErr, coldErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			hot, hotErr = s.queryHot(ctx, in.Site, in.Points, plan.HotStart, plan.HotEnd)
		}()
		go func() {
			defer wg.Done()
			cold, coldErr = s.queryCold(ctx, in.Site, in.Points, plan.ColdStart, plan.ColdEnd)
		}()
		wg.Wait()
		if hotErr != nil {
			return nil, nil, hotErr
		}
		return hot, cold, coldErr

	default:
		return nil, nil, perr.Internalf("query: unknown strategy %q", plan.Strategy)
	}
}

func (s *Service) queryHot(ctx context.Context, site string, points []string, start, end int64) ([]sample.Sample, error) {
	if end <= start {
		return nil, nil
	}
	var rows []sample.Sample
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		rows, e = s.Binder.Bind(q).Scan(ctx, site, points, start, end)
		return e
	})
	return rows, err
}

// queryCold fans out over every day chunk intersecting [start, end) with
// bounded parallelism, then filters rows to the requested points and range
func (s *Service) queryCold(ctx context.Context, site string, points []string, start, end int64) ([]sample.Sample, error) {
	if end <= start {
		return nil, nil
	}
	days := daysIn(start, end)
	if len(days) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(points))
	for _, p := range points {
		wanted[p] = true
	}

	type dayResult struct {
		rows []sample.Sample
		err  error
	}
	results := make([]dayResult, len(days))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.Cfg.ColdParallelism)
	for i, day := range days {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, day time.Time) {
			defer func() { <-sem; wg.Done() }()
			rows, err := s.Cold.ReadDay(ctx, site, day)
			if err != nil {
				results[i] = dayResult{err: err}
				return
			}
			kept := rows[:0]
			for _, r := range rows {
				if wanted[r.Point] && r.TS >= start && r.TS < end {
					kept = append(kept, r)
				}
			}
			results[i] = dayResult{rows: kept}
		}(i, day)
	}
	wg.Wait()

	var out []sample.Sample
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, r.rows...)
	}
	return out, nil
}

// legacy proxies the upstream API directly (use_routing=false)
func (s *Service) legacy(ctx context.Context, in domain.Input, start time.Time) (domain.Result, error) {
	if s.Proxy == nil {
		return domain.Result{}, perr.Unavailablef("query: legacy proxy not configured")
	}
	series, err := s.Proxy.FetchRange(ctx, in.Site, in.Points, in.Start, in.End)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{
		Series: series,
		Meta: domain.Meta{
			DataSource:   domain.SourceUpstream,
			Strategy:     domain.StrategyLegacy,
			CacheStatus:  domain.CacheBypass,
			ProcessingMS: time.Since(start).Milliseconds(),
		},
	}, nil
}

func sourceFor(st domain.Strategy) domain.DataSource {
	switch st {
	case domain.StrategyHotOnly:
		return domain.SourceHot
	case domain.StrategyColdOnly:
		return domain.SourceCold
	case domain.StrategySplit:
		return domain.SourceBoth
	default:
		return domain.SourceUpstream
	}
}

// daysIn enumerates midnight-UTC days whose 24h span intersects [start, end)
func daysIn(start, end int64) []time.Time {
	if end <= start {
		return nil
	}
	first := ptime.DayOfUnix(start)
	last := ptime.DayOfUnix(end - 1)
	var out []time.Time
	for d := first; !d.After(last); d = d.Add(24 * time.Hour) {
		out = append(out, d)
	}
	return out
}
