package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitals/internal/modkit"
	"vitals/internal/modkit/module"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	"vitals/internal/platform/store"

	archivemod "vitals/internal/services/archive/module"
)

func main() {
	root := config.New()

	l := logger.Get()

	cfg := store.ConfigFromEnv(root)
	cfg.PG.Enabled = true
	cfg.KV.Enabled = true
	cfg.Obj.Enabled = true
	cfg.CH.Enabled = root.Prefix("SERVICE_CLICKHOUSE_").MayBool("ENABLED", false)

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
		// zero interval means one pass and exit (cron-style deployment)
		fEvery = flag.Duration("every", 0, "re-run interval; 0 runs one pass and exits")
	)
	flag.Parse()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		KV:  st.KV,
		Obj: st.Obj,
		CH:  st.CH,
		Log: *l,
	}

	arc := archivemod.New(deps, archivemod.FromConfig(deps))
	module.Register(arc.Name(), arc.Ports())
	runner := module.MustPortsOf[archivemod.Ports](arc).Runner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		res, err := runner.RunPass(ctx)
		if err != nil {
			l.Error().Err(err).Msg("archive: pass failed")
			return
		}
		l.Info().
			Int("days_moved", res.DaysMoved).
			Int64("rows_moved", res.RowsMoved).
			Int("errors", res.Errors).
			Msg("archive: pass finished")
	}

	run()
	if *fEvery <= 0 {
		return
	}

	t := time.NewTicker(*fEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("archive: shutting down")
			return
		case <-t.C:
			run()
		}
	}
}
