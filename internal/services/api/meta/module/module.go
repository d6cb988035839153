// Package module wires the meta (health/status) endpoints into modkit
package module

import (
	modkit "vitals/internal/modkit"
	"vitals/internal/modkit/httpkit"
	str "vitals/internal/platform/strings"
	metahttp "vitals/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	name string
	src  metahttp.Sources
}

// New constructs the meta module
func New(_ modkit.Deps, src metahttp.Sources, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta")}, opts...)...)
	return &Module{name: b.Name, src: src}
}

// MountRoutes implements the modkit.Module interface; meta mounts at the root
func (m *Module) MountRoutes(r httpkit.Router) {
	metahttp.Register(r, m.src)
}

// Ports returns nil; meta exposes no cross-module ports
func (m *Module) Ports() any { return nil }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }
