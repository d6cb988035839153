package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	phttp "vitals/internal/platform/net/http"
	"vitals/internal/services/query/domain"

	"github.com/go-chi/chi/v5"
)

type fakeQuery struct {
	got domain.Input
	res domain.Result
	err error
}

func (f *fakeQuery) Query(_ context.Context, in domain.Input) (domain.Result, error) {
	f.got = in
	if f.err != nil {
		return domain.Result{}, f.err
	}
	return f.res, nil
}

func serve(t *testing.T, q domain.QueryPort, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), q, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, target, nil))
	return rec
}

func TestQueryEndpointSetsRoutingHeaders(t *testing.T) {
	q := &fakeQuery{res: domain.Result{
		Series: map[string][]domain.SeriesPoint{"p1": {}},
		Meta: domain.Meta{
			DataSource:   domain.SourceBoth,
			Strategy:     domain.StrategySplit,
			CacheStatus:  domain.CacheMiss,
			ProcessingMS: 42,
		},
	}}
	rec := serve(t, q, "/query?site=site_a&points=p1,p2&start_time=1704067200&end_time=1704153600")

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Data-Source") != "BOTH" {
		t.Fatalf("X-Data-Source = %q", rec.Header().Get("X-Data-Source"))
	}
	if rec.Header().Get("X-Query-Strategy") != "SPLIT" {
		t.Fatalf("X-Query-Strategy = %q", rec.Header().Get("X-Query-Strategy"))
	}
	if rec.Header().Get("X-Cache-Status") != "MISS" {
		t.Fatalf("X-Cache-Status = %q", rec.Header().Get("X-Cache-Status"))
	}
	if rec.Header().Get("X-Processing-Time-Ms") != "42" {
		t.Fatalf("X-Processing-Time-Ms = %q", rec.Header().Get("X-Processing-Time-Ms"))
	}

	if q.got.Site != "site_a" || len(q.got.Points) != 2 || !q.got.UseRouting {
		t.Fatalf("input = %+v", q.got)
	}
	if q.got.Start != 1704067200 || q.got.End != 1704153600 {
		t.Fatalf("range = [%d, %d]", q.got.Start, q.got.End)
	}
}

func TestQueryEndpointAcceptsRFC3339(t *testing.T) {
	q := &fakeQuery{res: domain.Result{Series: map[string][]domain.SeriesPoint{}}}
	rec := serve(t, q, "/query?site=s&points=p&start_time=2024-01-01T00:00:00Z&end_time=2024-01-02T00:00:00Z")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if q.got.Start != 1704067200 {
		t.Fatalf("start = %d", q.got.Start)
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	targets := []string{
		"/query?points=p&start_time=1&end_time=2",        // no site
		"/query?site=s&start_time=1&end_time=2",          // no points
		"/query?site=s&points=p&end_time=2",              // no start
		"/query?site=s&points=p&start_time=x&end_time=2", // bad instant
		"/query?site=s&points=p&start_time=1&end_time=2&use_routing=maybe",
	}
	for _, target := range targets {
		rec := serve(t, &fakeQuery{}, target)
		if rec.Code != stdhttp.StatusBadRequest {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
		var env phttp.Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: bad envelope: %v", target, err)
		}
		if env.Error == "" {
			t.Fatalf("%s: empty error", target)
		}
	}
}

func TestQueryEndpointUseRoutingFalse(t *testing.T) {
	q := &fakeQuery{res: domain.Result{Series: map[string][]domain.SeriesPoint{}}}
	rec := serve(t, q, "/query?site=s&points=p&start_time=1&end_time=2&use_routing=false")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if q.got.UseRouting {
		t.Fatal("use_routing=false not propagated")
	}
}
