// Package http provides the health and status endpoints
package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"vitals/internal/modkit/httpkit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/logger"
	"vitals/internal/platform/net/middleware"
	arcdom "vitals/internal/services/archive/domain"
	bfdom "vitals/internal/services/backfill/domain"
	etldom "vitals/internal/services/etl/domain"
)

// Sources aggregates the per-component status ports; any may be nil when the
// binary does not host that component
type Sources struct {
	Sites    []string
	ETL      etldom.RunnerPort
	Backfill bfdom.RunnerPort
	Archive  arcdom.RunnerPort

	// Healthcheck pings the configured backends (store.Guard)
	Healthcheck func(ctx context.Context) error

	// Auth guards the operator trigger endpoint
	Auth middleware.AuthPort
}

// statusPayload is the /status response body
type statusPayload struct {
	ETL      []etldom.SyncStatus `json:"etl,omitempty"`
	Backfill *bfdom.Progress     `json:"backfill,omitempty"`
	Archive  *arcdom.PassResult  `json:"archive,omitempty"`
	At       time.Time           `json:"at"`
}

// Register mounts /healthz, /status, and the operator /trigger
// (/health is already answered by the heartbeat middleware)
func Register(r httpkit.Router, src Sources) {
	h := &handlers{src: src}
	httpkit.Get(r, "/healthz", h.health)
	httpkit.Get(r, "/status", h.status)
	httpkit.Protected(r, src.Auth, func(pr httpkit.Router) {
		httpkit.Post(pr, "/trigger", h.trigger)
	})
}

type handlers struct{ src Sources }

func (h *handlers) health(r *stdhttp.Request) (any, error) {
	if h.src.Healthcheck != nil {
		if err := h.src.Healthcheck(r.Context()); err != nil {
			return nil, perr.Unavailablef("unhealthy: %v", err)
		}
	}
	return map[string]string{"status": "ok"}, nil
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	ctx := r.Context()
	out := statusPayload{At: time.Now().UTC()}

	if h.src.ETL != nil {
		for _, site := range h.src.Sites {
			st, err := h.src.ETL.Status(ctx, site)
			if err != nil {
				logger.C(ctx).Warn().Err(err).Str("site", site).Msg("status: etl lookup failed")
				continue
			}
			out.ETL = append(out.ETL, st)
		}
	}

	if h.src.Backfill != nil {
		if prog, err := h.src.Backfill.Status(ctx); err == nil {
			out.Backfill = &prog
		} else if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			return nil, err
		}
	}

	if h.src.Archive != nil {
		if pass, ok, err := h.src.Archive.LastPass(ctx); err != nil {
			return nil, err
		} else if ok {
			out.Archive = &pass
		}
	}

	return out, nil
}

// trigger runs an immediate sync for one site (operator override)
func (h *handlers) trigger(r *stdhttp.Request) (any, error) {
	if h.src.ETL == nil {
		return nil, perr.Unavailablef("etl not hosted here")
	}
	site := strings.TrimSpace(r.URL.Query().Get("site"))
	if site == "" {
		if len(h.src.Sites) != 1 {
			return nil, perr.InvalidArgf("site query parameter is required")
		}
		site = h.src.Sites[0]
	}
	return h.src.ETL.RunSync(r.Context(), site)
}
