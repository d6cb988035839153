package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perr "vitals/internal/platform/errors"
)

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Config{
		BaseURL:   srv.URL,
		Token:     "tok-123",
		PageSize:  100,
		Timeout:   2 * time.Second,
		RetryBase: time.Millisecond,
	})
	return c, srv
}

func TestFetchPageSendsLowercaseAuthHeader(t *testing.T) {
	var got []string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// the server has already canonicalized the name, so look it up that way
		got = r.Header["Authorization"]
		_ = json.NewEncoder(w).Encode(paginatedResponse{})
	})

	_, err := c.FetchPage(context.Background(), "site_a", time.Unix(0, 0), time.Unix(3600, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	// the server side re-canonicalizes incoming names, so the value is what
	// can be asserted here; the lowercase wire casing lives in client.go
	if len(got) != 1 || got[0] != "Bearer tok-123" {
		t.Fatalf("authorization = %v", got)
	}
}

func TestFetchPagePaginatesAndNormalizes(t *testing.T) {
	var calls int32
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("raw_data") == "" {
			t.Errorf("raw_data missing")
		}
		switch n {
		case 1:
			if r.URL.Query().Get("cursor") != "" {
				t.Errorf("first call had cursor %q", r.URL.Query().Get("cursor"))
			}
			_ = json.NewEncoder(w).Encode(paginatedResponse{
				Data: []wireSample{
					{PointName: "p1", TimestampMS: 1500, Value: 1},
					{PointName: "p1", TimestampMS: 2500, Value: 2},
				},
				NextCursor: "c2",
			})
		default:
			if r.URL.Query().Get("cursor") != "c2" {
				t.Errorf("second call cursor = %q", r.URL.Query().Get("cursor"))
			}
			_ = json.NewEncoder(w).Encode(paginatedResponse{
				Data: []wireSample{{PointName: "p2", TimestampMS: 3500, Value: 3}},
			})
		}
	})

	ctx := context.Background()
	p1, err := c.FetchPage(ctx, "site_a", time.Unix(0, 0), time.Unix(10, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	if p1.NextCursor != "c2" || len(p1.Samples) != 2 {
		t.Fatalf("page1 = %+v", p1)
	}
	if p1.Samples[0].TS != 1 || p1.Samples[1].TS != 2 {
		t.Fatalf("ms not floored: %+v", p1.Samples)
	}

	p2, err := c.FetchPage(ctx, "site_a", time.Unix(0, 0), time.Unix(10, 0), p1.NextCursor)
	if err != nil {
		t.Fatal(err)
	}
	if p2.NextCursor != "" || len(p2.Samples) != 1 {
		t.Fatalf("page2 = %+v", p2)
	}
}

func TestFetchPageDropsMalformedRows(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// JSON cannot carry NaN or Inf, so the rejected row here is one with
		// an empty point name; both go through the same FromWire rejection
		_, _ = w.Write([]byte(`{"data":[{"point_name":"p1","timestamp_ms":1000,"value":1.5},{"point_name":"","timestamp_ms":2000,"value":1}],"next_cursor":""}`))
	})
	p, err := c.FetchPage(context.Background(), "s", time.Unix(0, 0), time.Unix(10, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Received != 2 || len(p.Samples) != 1 || p.Dropped != 1 {
		t.Fatalf("page = %+v", p)
	}
}

func TestFetchPageRetriesTransient(t *testing.T) {
	var calls int32
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(paginatedResponse{
			Data: []wireSample{{PointName: "p", TimestampMS: 1000, Value: 1}},
		})
	})
	p, err := c.FetchPage(context.Background(), "s", time.Unix(0, 0), time.Unix(10, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want retry", calls)
	}
	if len(p.Samples) != 1 {
		t.Fatalf("page = %+v", p)
	}
}

func TestFetchPageAuthFailureIsPermanent(t *testing.T) {
	var calls int32
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FetchPage(context.Background(), "s", time.Unix(0, 0), time.Unix(10, 0), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if perr.CodeOf(err) != perr.ErrorCodeUnauthorized {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, 401 must not retry", calls)
	}
}

func TestConfiguredPoints(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sites/site_a/configured_points" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(configuredPointsResponse{
			Items: []ConfiguredPoint{{Name: "p1", Unit: "degF"}},
		})
	})
	pts, err := c.ConfiguredPoints(context.Background(), "site_a")
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0].Name != "p1" {
		t.Fatalf("points = %+v", pts)
	}
}
