package service

import (
	"testing"

	"vitals/internal/core/sample"
)

func TestMergeSeriesHotWinsOnCollision(t *testing.T) {
	cold := []sample.Sample{
		{Point: "p1", TS: 100, Value: 1.0},
		{Point: "p1", TS: 200, Value: 2.0},
	}
	hot := []sample.Sample{
		{Point: "p1", TS: 200, Value: 9.0}, // collides
		{Point: "p1", TS: 300, Value: 3.0},
	}
	out := mergeSeries([]string{"p1"}, cold, hot)

	s := out["p1"]
	if len(s) != 3 {
		t.Fatalf("series len = %d, want 3", len(s))
	}
	if s[1].TS != 200 || s[1].Value != 9.0 {
		t.Fatalf("collision kept %+v, want hot value 9", s[1])
	}
}

func TestMergeSeriesStrictlyAscendingNoDuplicates(t *testing.T) {
	cold := []sample.Sample{
		{Point: "p", TS: 30, Value: 1},
		{Point: "p", TS: 10, Value: 2},
		{Point: "p", TS: 20, Value: 3},
	}
	hot := []sample.Sample{
		{Point: "p", TS: 20, Value: 4},
		{Point: "p", TS: 40, Value: 5},
	}
	s := mergeSeries([]string{"p"}, cold, hot)["p"]
	for i := 1; i < len(s); i++ {
		if s[i].TS <= s[i-1].TS {
			t.Fatalf("not strictly ascending at %d: %+v", i, s)
		}
	}
}

func TestMergeSeriesEmptyPointsGetEmptySeries(t *testing.T) {
	out := mergeSeries([]string{"a", "b"}, nil, []sample.Sample{{Point: "a", TS: 1, Value: 1}})
	if len(out) != 2 {
		t.Fatalf("map len = %d", len(out))
	}
	if out["b"] == nil || len(out["b"]) != 0 {
		t.Fatalf("missing point b should map to empty series, got %v", out["b"])
	}
}

func TestMergeSeriesIgnoresUnrequestedPoints(t *testing.T) {
	out := mergeSeries([]string{"a"}, []sample.Sample{{Point: "zzz", TS: 1, Value: 1}}, nil)
	if len(out["a"]) != 0 {
		t.Fatalf("unexpected rows: %v", out["a"])
	}
	if _, ok := out["zzz"]; ok {
		t.Fatal("unrequested point leaked into response")
	}
}
