package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/modkit"
	"vitals/internal/modkit/module"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	"vitals/internal/platform/store"

	etlmod "vitals/internal/services/etl/module"
)

func main() {
	root := config.New()

	l := logger.Get()

	cfg := store.ConfigFromEnv(root)
	cfg.PG.Enabled = true
	cfg.KV.Enabled = true

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
		fOnce = flag.Bool("once", false, "run a single sync per site and exit")
		fSite = flag.String("site", "", "restrict to one site (default: all configured)")
		fConc = flag.Int("concurrency", 3, "parallel sites per tick")
	)
	flag.Parse()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		KV:  st.KV,
		Log: *l,
	}

	opt := etlmod.FromConfig(root)
	sites := opt.Sites
	if *fSite != "" {
		sites = []string{*fSite}
	}
	if len(sites) == 0 {
		l.Panic().Msg("no sites configured; set CORE_ETL_SITES or pass -site")
	}

	em := etlmod.New(deps, upstream.FromConfig(root), opt)
	module.Register(em.Name(), em.Ports())
	runner := module.MustPortsOf[etlmod.Ports](em).Runner

	interval := root.Prefix("CORE_ETL_").MayDuration("INTERVAL", 5*time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tick := func() {
		var wg sync.WaitGroup
		sem := make(chan struct{}, max(*fConc, 1))
		for _, site := range sites {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(site string) {
				defer func() { <-sem; wg.Done() }()
				res, err := runner.RunSync(ctx, site)
				if err != nil {
					l.Error().Err(err).Str("site", site).Msg("etl: sync failed")
					return
				}
				if res.Skipped {
					return
				}
				l.Info().
					Str("site", site).
					Int("inserted", res.SamplesInserted).
					Int("pages", res.PagesFetched).
					Msg("etl: tick done")
			}(site)
		}
		wg.Wait()
	}

	tick()
	if *fOnce {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("etl: shutting down")
			return
		case <-t.C:
			tick()
		}
	}
}
