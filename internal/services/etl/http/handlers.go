// Package http provides http transport for the ETL synchronizer
package http

import (
	stdhttp "net/http"
	"strings"

	"vitals/internal/modkit/httpkit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/net/middleware"
	"vitals/internal/services/etl/domain"
)

// Register mounts etl endpoints on the given router
// GET  /status   - per-site status snapshot
// POST /trigger  - operator-initiated immediate sync, behind bearer auth
func Register(r httpkit.Router, runner domain.RunnerPort, sites []string, auth middleware.AuthPort) {
	h := &handlers{runner: runner, sites: sites}
	httpkit.Get(r, "/status", h.status)
	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Post(pr, "/trigger", h.trigger)
	})
}

type handlers struct {
	runner domain.RunnerPort
	sites  []string
}

func (h *handlers) site(r *stdhttp.Request) (string, error) {
	site := strings.TrimSpace(r.URL.Query().Get("site"))
	if site != "" {
		return site, nil
	}
	if len(h.sites) == 1 {
		return h.sites[0], nil
	}
	return "", perr.InvalidArgf("site query parameter is required")
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	site := strings.TrimSpace(r.URL.Query().Get("site"))
	if site != "" {
		return h.runner.Status(r.Context(), site)
	}
	// no site: status for every configured site
	out := make([]domain.SyncStatus, 0, len(h.sites))
	for _, s := range h.sites {
		st, err := h.runner.Status(r.Context(), s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (h *handlers) trigger(r *stdhttp.Request) (any, error) {
	site, err := h.site(r)
	if err != nil {
		return nil, err
	}
	return h.runner.RunSync(r.Context(), site)
}
