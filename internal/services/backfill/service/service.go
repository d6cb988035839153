// Package service provides the backfill engine implementation.
// A job advances one UTC day at a time across many short-lived ticks; every
// tick persists the full state snapshot so any instance can pick it up.
package service

import (
	"context"
	"time"

	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/logger"
	ptime "vitals/internal/platform/time"
	"vitals/internal/services/backfill/domain"

	"github.com/google/uuid"
)

// Config holds tuning for the backfill engine
type Config struct {
	// PagesPerTick bounds upstream pages consumed per invocation; <=0 -> 5
	PagesPerTick int

	// MaxRangeDays guards against runaway ranges; <=0 -> 1095 (3y)
	MaxRangeDays int

	// EmptyRetryLimit is how many consecutive empty first pages a day gets
	// before it is deliberately marked empty; <=0 -> 3
	EmptyRetryLimit int
}

func (c Config) withDefaults() Config {
	if c.PagesPerTick <= 0 {
		c.PagesPerTick = 5
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = 1095
	}
	if c.EmptyRetryLimit <= 0 {
		c.EmptyRetryLimit = 3
	}
	return c
}

// Service implements domain.RunnerPort
type Service struct {
	Fetch  domain.Fetcher
	Chunks domain.ChunkStore
	State  domain.StatePort
	Cfg    Config

	// NowFn is a seam for tests; zero means time.Now
	NowFn func() time.Time
}

// New constructs the backfill engine
func New(fetch domain.Fetcher, chunks domain.ChunkStore, state domain.StatePort, cfg Config) *Service {
	if fetch == nil {
		panic("backfill.Service requires a non nil Fetcher")
	}
	if chunks == nil {
		panic("backfill.Service requires a non nil ChunkStore")
	}
	if state == nil {
		panic("backfill.Service requires a non nil StatePort")
	}
	return &Service{Fetch: fetch, Chunks: chunks, State: state, Cfg: cfg.withDefaults()}
}

func (s *Service) now() time.Time {
	if s.NowFn != nil {
		return s.NowFn()
	}
	return time.Now()
}

// Start implements domain.RunnerPort
func (s *Service) Start(ctx context.Context, site, startDate, endDate string) (domain.Progress, error) {
	if site == "" {
		return domain.Progress{}, perr.InvalidArgf("site is required")
	}
	start, err := ptime.ParseDayKey(startDate)
	if err != nil {
		return domain.Progress{}, perr.InvalidArgf("bad start date %q, want YYYY-MM-DD", startDate)
	}
	end, err := ptime.ParseDayKey(endDate)
	if err != nil {
		return domain.Progress{}, perr.InvalidArgf("bad end date %q, want YYYY-MM-DD", endDate)
	}
	if end.Before(start) {
		return domain.Progress{}, perr.InvalidArgf("end date before start date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.Cfg.MaxRangeDays {
		return domain.Progress{}, perr.InvalidArgf("range of %d days exceeds limit of %d", days, s.Cfg.MaxRangeDays)
	}

	// one running job at a time; a finished job is silently displaced
	if id, ok, err := s.State.ActiveJob(ctx); err != nil {
		return domain.Progress{}, err
	} else if ok {
		if prev, found, err := s.State.LoadJob(ctx, id); err != nil {
			return domain.Progress{}, err
		} else if found && prev.Status == domain.JobRunning {
			return domain.Progress{}, perr.Conflictf("backfill job %s already running for site %s", prev.ID, prev.Site)
		}
	}

	now := s.now().UTC()
	job := &domain.Job{
		ID:             uuid.NewString(),
		Site:           site,
		StartDate:      startDate,
		EndDate:        endDate,
		CurrentDate:    startDate,
		CompletedDates: map[string]bool{},
		Status:         domain.JobRunning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.State.SaveJob(ctx, job); err != nil {
		return domain.Progress{}, err
	}
	if err := s.State.SetActiveJob(ctx, job.ID); err != nil {
		return domain.Progress{}, err
	}
	logger.C(ctx).Info().
		Str("job", job.ID).
		Str("site", site).
		Str("start", startDate).
		Str("end", endDate).
		Msg("backfill: job started")
	return job.Snapshot(), nil
}

// Status implements domain.RunnerPort
func (s *Service) Status(ctx context.Context) (domain.Progress, error) {
	id, ok, err := s.State.ActiveJob(ctx)
	if err != nil {
		return domain.Progress{}, err
	}
	if !ok {
		return domain.Progress{}, perr.NotFoundf("no backfill job")
	}
	job, found, err := s.State.LoadJob(ctx, id)
	if err != nil {
		return domain.Progress{}, err
	}
	if !found {
		return domain.Progress{}, perr.NotFoundf("backfill job %s not found", id)
	}
	return job.Snapshot(), nil
}

// Tick implements domain.RunnerPort. It consumes up to PagesPerTick upstream
// pages, flushing received samples into cold chunks BEFORE persisting the
// advanced cursor: a crash in between re-fetches a page whose rows the chunk
// merge then dedups.
func (s *Service) Tick(ctx context.Context) (domain.TickResult, error) {
	id, ok, err := s.State.ActiveJob(ctx)
	if err != nil {
		return domain.TickResult{}, err
	}
	if !ok {
		return domain.TickResult{Idle: true}, nil
	}
	job, found, err := s.State.LoadJob(ctx, id)
	if err != nil {
		return domain.TickResult{}, err
	}
	if !found || job.Status != domain.JobRunning {
		res := domain.TickResult{JobID: id, Idle: true}
		if found {
			res.Status = job.Status
		}
		return res, nil
	}

	res := domain.TickResult{JobID: job.ID, Status: job.Status}

	for res.PagesProcessed < s.Cfg.PagesPerTick && job.Status == domain.JobRunning {
		stop, err := s.processPage(ctx, job, &res)
		if err != nil {
			return res, err
		}
		if stop {
			break
		}
	}

	job.UpdatedAt = s.now().UTC()
	if err := s.State.SaveJob(ctx, job); err != nil {
		return res, err
	}
	res.Status = job.Status
	return res, nil
}

// processPage fetches one page for the job's current (day, cursor).
// Returns stop=true when the tick should end early (soft failure or error).
func (s *Service) processPage(ctx context.Context, job *domain.Job, res *domain.TickResult) (bool, error) {
	day := job.CurrentDate
	dayT, err := ptime.ParseDayKey(day)
	if err != nil {
		job.Status = domain.JobError
		job.RecordError(s.now(), day, "corrupt current_date")
		return true, s.State.SaveJob(ctx, job)
	}

	winStart := dayT
	winEnd := dayT.Add(24*time.Hour - time.Second) // day 23:59:59 UTC

	page, err := s.Fetch.FetchPage(ctx, job.Site, winStart, winEnd, job.CurrentCursor)
	if err != nil {
		job.RecordError(s.now(), day, err.Error())
		if !perr.IsUpstreamTransient(err) {
			// auth/validation failures need an operator; stop the job
			job.Status = domain.JobError
		}
		job.UpdatedAt = s.now().UTC()
		if serr := s.State.SaveJob(ctx, job); serr != nil {
			return true, serr
		}
		logger.C(ctx).Error().Err(err).Str("job", job.ID).Str("day", day).Msg("backfill: page fetch failed")
		return true, nil
	}
	res.PagesProcessed++

	// A zero-row FIRST page is a soft failure: it protects against a dead
	// token or quota cut silently completing hundreds of days. The day is
	// retried next tick; after EmptyRetryLimit strikes it is deliberately
	// marked empty (never completed).
	if page.Received == 0 && job.CurrentCursor == "" {
		if job.EmptyRetries == nil {
			job.EmptyRetries = map[string]int{}
		}
		job.EmptyRetries[day]++
		if job.EmptyRetries[day] >= s.Cfg.EmptyRetryLimit {
			job.MarkEmpty(day)
			logger.C(ctx).Warn().Str("job", job.ID).Str("day", day).Msg("backfill: day marked empty")
			s.advanceDay(job, dayT)
			return false, nil
		}
		job.RecordError(s.now(), day, "empty first page, retrying next tick")
		job.UpdatedAt = s.now().UTC()
		return true, s.State.SaveJob(ctx, job)
	}

	// flush to the cold tier before the cursor moves
	if len(page.Samples) > 0 {
		if _, _, err := s.Chunks.Append(ctx, job.Site, dayT, page.Samples); err != nil {
			job.RecordError(s.now(), day, err.Error())
			job.UpdatedAt = s.now().UTC()
			if serr := s.State.SaveJob(ctx, job); serr != nil {
				return true, serr
			}
			return true, nil
		}
		job.SamplesFetched += int64(len(page.Samples))
		res.SamplesFetched += int64(len(page.Samples))
	}

	if page.NextCursor == "" {
		// end of cursor; the empty-first-page guard above means at least one
		// page carried data, so the day may be marked complete
		job.MarkCompleted(day)
		res.DaysCompleted++
		s.advanceDay(job, dayT)
		return false, nil
	}

	job.CurrentCursor = page.NextCursor
	return false, s.State.SaveJob(ctx, job)
}

// advanceDay moves the walk to the next day, finishing the job past the range
func (s *Service) advanceDay(job *domain.Job, dayT time.Time) {
	job.CurrentCursor = ""
	next := dayT.Add(24 * time.Hour)
	job.CurrentDate = ptime.DayKey(next)
	end, _ := ptime.ParseDayKey(job.EndDate)
	if next.After(end) {
		job.Status = domain.JobComplete
	}
}
