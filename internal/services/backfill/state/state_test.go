package state

import (
	"context"
	"testing"

	"vitals/internal/platform/store/kv"
	"vitals/internal/services/backfill/domain"

	"github.com/alicebob/miniredis/v2"
)

func testKV(t *testing.T) *KV {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := kv.Open(context.Background(), kv.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestJobRoundTrip(t *testing.T) {
	s := testKV(t)
	ctx := context.Background()

	job := &domain.Job{
		ID:          "j1",
		Site:        "site_a",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-10",
		CurrentDate: "2024-01-03",
		CurrentCursor: "cursor-xyz",
		CompletedDates: map[string]bool{
			"2024-01-01": true,
			"2024-01-02": true,
		},
		SamplesFetched: 1234,
		Status:         domain.JobRunning,
	}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.LoadJob(ctx, "j1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.CurrentDate != "2024-01-03" || got.CurrentCursor != "cursor-xyz" {
		t.Fatalf("resume pair lost: %+v", got)
	}
	if len(got.CompletedDates) != 2 || !got.CompletedDates["2024-01-02"] {
		t.Fatalf("completed set lost: %v", got.CompletedDates)
	}
	if got.SamplesFetched != 1234 || got.Status != domain.JobRunning {
		t.Fatalf("job = %+v", got)
	}
}

func TestLoadMissingJob(t *testing.T) {
	s := testKV(t)
	if _, ok, err := s.LoadJob(context.Background(), "nope"); err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestActiveJobTracker(t *testing.T) {
	s := testKV(t)
	ctx := context.Background()

	if _, ok, _ := s.ActiveJob(ctx); ok {
		t.Fatal("fresh tracker reported a job")
	}
	if err := s.SetActiveJob(ctx, "j9"); err != nil {
		t.Fatal(err)
	}
	id, ok, err := s.ActiveJob(ctx)
	if err != nil || !ok || id != "j9" {
		t.Fatalf("id=%q ok=%v err=%v", id, ok, err)
	}
	if err := s.SetActiveJob(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.ActiveJob(ctx); ok {
		t.Fatal("tracker not cleared")
	}
}
