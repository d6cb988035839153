// Package http provides http transport for the query router
package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/modkit/httpkit"
	perr "vitals/internal/platform/errors"
	"vitals/internal/services/query/domain"
)

// PointLister is the slice of the upstream client the inventory endpoint needs
type PointLister interface {
	ConfiguredPoints(ctx context.Context, site string) ([]upstream.ConfiguredPoint, error)
}

// Register mounts the query endpoints on the given router
// GET /query?site=&points=&start_time=&end_time=[&use_routing=]
// GET /points?site=   (upstream point inventory passthrough)
func Register(r httpkit.Router, q domain.QueryPort, points PointLister) {
	h := &handlers{q: q, points: points}
	r.Get("/query", httpkit.Handle(h.query))
	httpkit.Get(r, "/points", h.listPoints)
}

type handlers struct {
	q      domain.QueryPort
	points PointLister
}

func (h *handlers) listPoints(r *stdhttp.Request) (any, error) {
	if h.points == nil {
		return nil, perr.Unavailablef("point inventory not configured")
	}
	site := strings.TrimSpace(r.URL.Query().Get("site"))
	if site == "" {
		return nil, perr.Validationf("site is required")
	}
	return h.points.ConfiguredPoints(r.Context(), site)
}

func (h *handlers) query(r *stdhttp.Request) httpkit.Response {
	in, err := parseInput(r)
	if err != nil {
		return httpkit.Error(err)
	}

	res, err := h.q.Query(r.Context(), in)
	if err != nil {
		return httpkit.Error(err)
	}

	hdr := stdhttp.Header{}
	hdr.Set("X-Data-Source", string(res.Meta.DataSource))
	hdr.Set("X-Query-Strategy", string(res.Meta.Strategy))
	hdr.Set("X-Cache-Status", string(res.Meta.CacheStatus))
	hdr.Set("X-Processing-Time-Ms", strconv.FormatInt(res.Meta.ProcessingMS, 10))

	return httpkit.OK(res).WithHeaders(hdr)
}

func parseInput(r *stdhttp.Request) (domain.Input, error) {
	q := r.URL.Query()

	site := strings.TrimSpace(q.Get("site"))
	if site == "" {
		return domain.Input{}, perr.Validationf("site is required")
	}

	var points []string
	for _, part := range strings.Split(q.Get("points"), ",") {
		if p := strings.TrimSpace(part); p != "" {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return domain.Input{}, perr.Validationf("points is required (comma-separated)")
	}

	start, err := parseInstant(q.Get("start_time"))
	if err != nil {
		return domain.Input{}, perr.Validationf("bad start_time: %v", err)
	}
	end, err := parseInstant(q.Get("end_time"))
	if err != nil {
		return domain.Input{}, perr.Validationf("bad end_time: %v", err)
	}

	useRouting := true
	if v := q.Get("use_routing"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.Input{}, perr.Validationf("bad use_routing: %v", err)
		}
		useRouting = b
	}

	return domain.Input{
		Site:       site,
		Points:     points,
		Start:      start,
		End:        end,
		UseRouting: useRouting,
	}, nil
}

// parseInstant accepts RFC3339 or unix seconds
func parseInstant(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, perr.Validationf("missing")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
