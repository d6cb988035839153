package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	phttp "vitals/internal/platform/net/http"
	"vitals/internal/platform/store"

	"vitals/internal/services/api"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	l := logger.Get()

	// the api role needs every backend: hot reads, cold reads, cache,
	// backfill state; clickhouse only when rollup reads get exposed later
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

	srv := phttp.NewServer(apiCfg)

	api.Mount(srv.Router(), api.Options{
		Config:   root,
		Store:    st,
		Logger:   l,
		Upstream: upstream.FromConfig(root),
	})

	// graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
