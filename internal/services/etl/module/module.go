// Package module wires the ETL synchronizer into modkit
package module

import (
	"net/http"

	modkit "vitals/internal/modkit"
	"vitals/internal/modkit/httpkit"
	str "vitals/internal/platform/strings"
	etldom "vitals/internal/services/etl/domain"
	etlhttp "vitals/internal/services/etl/http"
	etlrepo "vitals/internal/services/etl/repo"
	etlsvc "vitals/internal/services/etl/service"
	etlstate "vitals/internal/services/etl/state"
)

// Ports is the module's exported port bundle
type Ports struct {
	Runner etldom.RunnerPort
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    any
	register func(httpkit.Router)

	svc *etlsvc.Service
}

// New constructs the etl module. The upstream fetcher is injected because it
// is shared with backfill and the query proxy.
func New(deps modkit.Deps, fetch etldom.Fetcher, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("etl"), modkit.WithPrefix("/etl")}, opts...)...)

	svc := etlsvc.New(deps.PG, etlrepo.NewPG(), fetch, etlstate.New(deps.KV), opt.Svc)

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
		etlhttp.Register(r, svc, opt.Sites, opt.Auth)
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
