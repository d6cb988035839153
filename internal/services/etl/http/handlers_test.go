package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	phttp "vitals/internal/platform/net/http"
	"vitals/internal/platform/net/middleware"
	"vitals/internal/services/etl/domain"

	"github.com/go-chi/chi/v5"
)

type fakeRunner struct {
	synced []string
}

func (f *fakeRunner) RunSync(_ context.Context, site string) (domain.SyncResult, error) {
	f.synced = append(f.synced, site)
	return domain.SyncResult{Site: site, SamplesInserted: 3}, nil
}

func (f *fakeRunner) Status(_ context.Context, site string) (domain.SyncStatus, error) {
	return domain.SyncStatus{Site: site, LastSyncTS: 1700000000}, nil
}

func mount(runner domain.RunnerPort, sites []string, auth middleware.AuthPort) *chi.Mux {
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), runner, sites, auth)
	return mux
}

func TestStatusAllSites(t *testing.T) {
	mux := mount(&fakeRunner{}, []string{"a", "b"}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/status", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusSingleSite(t *testing.T) {
	mux := mount(&fakeRunner{}, []string{"a", "b"}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/status?site=a", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTriggerRunsSync(t *testing.T) {
	runner := &fakeRunner{}
	mux := mount(runner, []string{"a"}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/trigger", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(runner.synced) != 1 || runner.synced[0] != "a" {
		t.Fatalf("synced = %v", runner.synced)
	}
}

func TestTriggerNeedsSiteWhenAmbiguous(t *testing.T) {
	mux := mount(&fakeRunner{}, []string{"a", "b"}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/trigger", nil))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTriggerProtected(t *testing.T) {
	runner := &fakeRunner{}
	mux := mount(runner, []string{"a"}, middleware.StaticToken{Token: "secret"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodPost, "/trigger", nil))
	if rec.Code != stdhttp.StatusUnauthorized || len(runner.synced) != 0 {
		t.Fatalf("status = %d synced = %v", rec.Code, runner.synced)
	}

	req := httptest.NewRequest(stdhttp.MethodPost, "/trigger", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
