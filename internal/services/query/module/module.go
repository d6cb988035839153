// Package module wires the query router into modkit
package module

import (
	"net/http"

	modkit "vitals/internal/modkit"
	"vitals/internal/adapters/upstream"
	"vitals/internal/modkit/httpkit"
	str "vitals/internal/platform/strings"
	"vitals/internal/services/query/cache"
	"vitals/internal/services/query/cold"
	qdom "vitals/internal/services/query/domain"
	qhttp "vitals/internal/services/query/http"
	"vitals/internal/services/query/proxy"
	qrepo "vitals/internal/services/query/repo"
	qsvc "vitals/internal/services/query/service"
)

// Ports is the module's exported port bundle
type Ports struct {
	Query qdom.QueryPort
}

// Options configure the router beyond shared deps
type Options struct {
	Svc qsvc.Config
}

// FromConfig reads the shared retention key plus CORE_QUERY_* into Options
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("CORE_QUERY_")
	return Options{
		Svc: qsvc.Config{
			RetentionDays:   deps.Cfg.MayInt("CORE_RETENTION_HOT_DAYS", 20),
			MaxRangeDays:    c.MayInt("MAX_RANGE_DAYS", 365),
			MaxPoints:       c.MayInt("MAX_POINTS", 50),
			ColdParallelism: c.MayInt("COLD_PARALLELISM", 8),
		},
	}
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    any
	register func(httpkit.Router)

	svc *qsvc.Service
}

// New constructs the query module. The upstream client powers the legacy
// proxy path; pass nil to disable the escape hatch.
func New(deps modkit.Deps, client *upstream.Client, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("query"), modkit.WithPrefix("/timeseries")}, opts...)...)

	var px qdom.Proxy
	var points qhttp.PointLister
	if client != nil {
		px = proxy.New(client)
		points = client
	}
	var qc qdom.CachePort
	if c := cache.New(deps.KV); c != nil {
		qc = c
	}

	svc := qsvc.New(deps.PG, qrepo.NewPG(), cold.New(deps.Obj), qc, px, opt.Svc)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		svc:    svc,
	}
	m.ports = Ports{Query: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		qhttp.Register(r, svc, points)
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
