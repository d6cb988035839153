// Package api composes the HTTP surface: query router, backfill control,
// etl status/trigger, and the meta endpoints
package api

import (
	"vitals/internal/adapters/upstream"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	phttp "vitals/internal/platform/net/http"
	"vitals/internal/platform/store"

	"vitals/internal/modkit"
	"vitals/internal/modkit/httpkit"
	"vitals/internal/modkit/module"

	metamod "vitals/internal/services/api/meta/module"
	metahttp "vitals/internal/services/api/meta/http"
	archivemod "vitals/internal/services/archive/module"
	backfillmod "vitals/internal/services/backfill/module"
	etlmod "vitals/internal/services/etl/module"
	querymod "vitals/internal/services/query/module"
)

// Options are the API options
type Options struct {
	Config   config.Conf
	Store    *store.Store
	Logger   *logger.Logger
	Upstream *upstream.Client
}

// Mount wires every module onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		KV:  opt.Store.KV,
		Obj: opt.Store.Obj,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	etlOpt := etlmod.FromConfig(deps.Cfg)
	etl := etlmod.New(deps, opt.Upstream, etlOpt)

	bf := backfillmod.New(deps, opt.Upstream, backfillmod.FromConfig(deps))

	// archive runs in its own binary; the api only reads its last pass
	arc := archivemod.New(deps, archivemod.FromConfig(deps))

	q := querymod.New(deps, opt.Upstream, querymod.FromConfig(deps))

	meta := metamod.New(deps, metahttp.Sources{
		Sites:       etlOpt.Sites,
		ETL:         module.MustPortsOf[etlmod.Ports](etl).Runner,
		Backfill:    module.MustPortsOf[backfillmod.Ports](bf).Runner,
		Archive:     module.MustPortsOf[archivemod.Ports](arc).Runner,
		Healthcheck: opt.Store.Guard,
		Auth:        etlOpt.Auth,
	})

	mods := []module.Module{meta, etl, bf, q, arc}

	for _, mw := range httpkit.CommonStack() {
		r.Use(mw)
	}

	for _, m := range mods {
		module.Register(m.Name(), m.Ports())
		m.MountRoutes(r)
	}
}
