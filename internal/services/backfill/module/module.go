// Package module wires the backfill engine into modkit
package module

import (
	"net/http"

	"vitals/internal/core/chunk"
	modkit "vitals/internal/modkit"
	"vitals/internal/modkit/httpkit"
	"vitals/internal/platform/net/middleware"
	str "vitals/internal/platform/strings"
	bfdom "vitals/internal/services/backfill/domain"
	bfhttp "vitals/internal/services/backfill/http"
	bfsvc "vitals/internal/services/backfill/service"
	bfstate "vitals/internal/services/backfill/state"
)

// Ports is the module's exported port bundle
type Ports struct {
	Runner bfdom.RunnerPort
}

// Options configure the backfill module beyond shared deps
type Options struct {
	Svc bfsvc.Config

	// Auth guards the start/tick endpoints; nil leaves them open (tests)
	Auth middleware.AuthPort
}

// FromConfig reads CORE_BACKFILL_* into Options
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("CORE_BACKFILL_")
	opt := Options{
		Svc: bfsvc.Config{
			PagesPerTick:    c.MayInt("PAGES_PER_TICK", 5),
			MaxRangeDays:    c.MayInt("MAX_RANGE_DAYS", 1095),
			EmptyRetryLimit: c.MayInt("EMPTY_RETRY_LIMIT", 3),
		},
	}
	if tok := deps.Cfg.Prefix("CORE_API_").MayString("BEARER_TOKEN", ""); tok != "" {
		opt.Auth = middleware.StaticToken{Token: tok}
	}
	return opt
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    any
	register func(httpkit.Router)

	svc *bfsvc.Service
}

// New constructs the backfill module
func New(deps modkit.Deps, fetch bfdom.Fetcher, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("backfill"), modkit.WithPrefix("/backfill")}, opts...)...)

	svc := bfsvc.New(fetch, chunk.NewWriter(deps.Obj), bfstate.New(deps.KV), opt.Svc)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		svc:    svc,
	}
	m.ports = Ports{Runner: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bfhttp.Register(r, svc, opt.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Ports returns the module port bundle
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }
