package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vitals/internal/adapters/upstream"
	"vitals/internal/services/query/domain"
)

func testProxy(t *testing.T, h http.HandlerFunc) *Upstream {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(upstream.New(upstream.Config{
		BaseURL:   srv.URL,
		Token:     "t",
		Timeout:   2 * time.Second,
		RetryBase: time.Millisecond,
	}))
}

func TestFetchRangeFiltersAndSorts(t *testing.T) {
	var calls int32
	p := testProxy(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"data":[
				{"point_name":"p1","timestamp_ms":5000,"value":5},
				{"point_name":"p1","timestamp_ms":1000,"value":1},
				{"point_name":"ignored","timestamp_ms":2000,"value":2}
			],"next_cursor":"c"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":        []map[string]any{{"point_name": "p1", "timestamp_ms": 3000, "value": 3}},
			"next_cursor": "",
		})
	})

	series, err := p.FetchRange(context.Background(), "s", []string{"p1"}, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	s := series["p1"]
	if len(s) != 3 {
		t.Fatalf("rows = %d: %v", len(s), s)
	}
	for i := 1; i < len(s); i++ {
		if s[i].TS <= s[i-1].TS {
			t.Fatalf("unsorted at %d: %v", i, s)
		}
	}
	if _, ok := series["ignored"]; ok {
		t.Fatal("unrequested point leaked")
	}
}

func TestFetchRangeClampsToRange(t *testing.T) {
	p := testProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"point_name":"p","timestamp_ms":500,"value":1},
			{"point_name":"p","timestamp_ms":5000,"value":2},
			{"point_name":"p","timestamp_ms":99999000,"value":3}
		],"next_cursor":""}`))
	})
	series, err := p.FetchRange(context.Background(), "s", []string{"p"}, 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	// 0s is below the range, 99999s above; only 5s survives
	if len(series["p"]) != 1 || series["p"][0].TS != 5 {
		t.Fatalf("rows = %v", series["p"])
	}
}

func TestDedupAscKeepsLast(t *testing.T) {
	in := []domain.SeriesPoint{{TS: 1, Value: 1}, {TS: 1, Value: 9}, {TS: 2, Value: 2}}
	out := dedupAsc(in)
	if len(out) != 2 {
		t.Fatalf("rows = %v", out)
	}
	if out[0].Value != 9 {
		t.Fatalf("duplicate kept %v, want the later one", out[0])
	}
}
