// Package http provides http transport for the backfill engine
package http

import (
	stdhttp "net/http"

	"vitals/internal/modkit/httpkit"
	"vitals/internal/platform/net/middleware"
	"vitals/internal/services/backfill/domain"
)

// StartInput is the POST /backfill/start payload
type StartInput struct {
	Site  string `json:"site" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Register mounts backfill endpoints on the given router
// POST /start and POST /tick sit behind bearer auth; /status is open
func Register(r httpkit.Router, runner domain.RunnerPort, auth middleware.AuthPort) {
	h := &handlers{runner: runner}
	httpkit.Get(r, "/status", h.status)
	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[StartInput](pr, "/start", h.start)
		httpkit.Post(pr, "/tick", h.tick)
	})
}

type handlers struct{ runner domain.RunnerPort }

func (h *handlers) start(r *stdhttp.Request, in StartInput) (any, error) {
	prog, err := h.runner.Start(r.Context(), in.Site, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(prog), nil
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.runner.Status(r.Context())
}

func (h *handlers) tick(r *stdhttp.Request) (any, error) {
	return h.runner.Tick(r.Context())
}
