// Package module wires the archival compactor into modkit
package module

import (
	"net/http"

	"vitals/internal/core/chunk"
	modkit "vitals/internal/modkit"
	"vitals/internal/modkit/httpkit"
	str "vitals/internal/platform/strings"
	arcdom "vitals/internal/services/archive/domain"
	arcrepo "vitals/internal/services/archive/repo"
	arcsvc "vitals/internal/services/archive/service"
	arcstate "vitals/internal/services/archive/state"
)

// Ports is the module's exported port bundle
type Ports struct {
	Runner arcdom.RunnerPort
}

// Options configure the compactor beyond shared deps
type Options struct {
	Svc arcsvc.Config
}

// FromConfig reads the shared retention key plus CORE_ARCHIVE_* into Options.
// CORE_RETENTION_HOT_DAYS is the single source of truth for the tier
// boundary; the query planner reads the same key.
func FromConfig(deps modkit.Deps) Options {
	return Options{
		Svc: arcsvc.Config{
			RetentionDays: deps.Cfg.MayInt("CORE_RETENTION_HOT_DAYS", 20),
			Workers:       deps.Cfg.Prefix("CORE_ARCHIVE_").MayInt("WORKERS", 2),
		},
	}
}

// Module implements the modkit.Module interface
type Module struct {
	deps  modkit.Deps
	name  string
	ports any

	svc *arcsvc.Service
}

// New constructs the archive module. It exposes no routes of its own; the
// meta module surfaces LastPass on /status.
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("archive")}, opts...)...)

	svc := arcsvc.New(
		deps.PG,
		arcrepo.NewPG(),
		chunk.NewWriter(deps.Obj),
		arcstate.New(deps.KV),
		rollupSink(deps),
		opt.Svc,
	)

	m := &Module{deps: deps, name: b.Name, svc: svc}
	m.ports = Ports{Runner: svc}
	return m
}

// rollupSink keeps the nil-interface wart out of the constructor: a typed
// nil *RollupSink must not become a non-nil domain.RollupSink
func rollupSink(deps modkit.Deps) arcdom.RollupSink {
	if deps.CH == nil {
		return nil
	}
	return arcrepo.NewRollupSink(deps.CH)
}

// MountRoutes implements the modkit.Module interface (no routes)
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Ports returns the module port bundle
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Middlewares keeps the Module surface symmetric with http-facing modules
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return nil }
