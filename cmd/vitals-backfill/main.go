package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/modkit"
	"vitals/internal/modkit/module"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	"vitals/internal/platform/store"

	bfdom "vitals/internal/services/backfill/domain"
	backfillmod "vitals/internal/services/backfill/module"
)

func main() {
	root := config.New()

	l := logger.Get()

	cfg := store.ConfigFromEnv(root)
	cfg.KV.Enabled = true
	cfg.Obj.Enabled = true

	st, err := store.Open(context.Background(), cfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fSite  = flag.String("site", "", "site to backfill (with -start/-end)")
		fStart = flag.String("start", "", "UTC start day YYYY-MM-DD")
		fEnd   = flag.String("end", "", "UTC end day YYYY-MM-DD inclusive")
		fOnce  = flag.Bool("once", false, "run a single tick and exit")
		fEvery = flag.Duration("every", 15*time.Second, "tick interval when draining")
	)
	flag.Parse()

	deps := modkit.Deps{
		Cfg: root,
		KV:  st.KV,
		Obj: st.Obj,
		Log: *l,
	}

	bf := backfillmod.New(deps, upstream.FromConfig(root), backfillmod.FromConfig(deps))
	module.Register(bf.Name(), bf.Ports())
	runner := module.MustPortsOf[backfillmod.Ports](bf).Runner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// optionally start a fresh job before draining
	if *fStart != "" || *fEnd != "" {
		if *fSite == "" || *fStart == "" || *fEnd == "" {
			l.Panic().Msg("starting a job needs -site, -start and -end")
		}
		prog, err := runner.Start(ctx, *fSite, *fStart, *fEnd)
		if err != nil {
			l.Fatal().Err(err).Msg("backfill: start failed")
		}
		l.Info().
			Str("job", prog.JobID).
			Int("total_days", prog.TotalDays).
			Msg("backfill: job created")
	}

	for {
		res, err := runner.Tick(ctx)
		if err != nil {
			l.Error().Err(err).Msg("backfill: tick failed")
		} else {
			if res.Idle {
				l.Info().Msg("backfill: nothing to do")
				return
			}
			l.Info().
				Str("job", res.JobID).
				Int("pages", res.PagesProcessed).
				Int64("samples", res.SamplesFetched).
				Int("days_completed", res.DaysCompleted).
				Str("status", string(res.Status)).
				Msg("backfill: tick done")
			if res.Status == bfdom.JobComplete || res.Status == bfdom.JobError {
				return
			}
		}
		if *fOnce {
			return
		}
		select {
		case <-ctx.Done():
			l.Info().Msg("backfill: shutting down, state persisted")
			return
		case <-time.After(*fEvery):
		}
	}
}
