package state

import (
	"context"
	"testing"
	"time"

	"vitals/internal/platform/store/kv"
	"vitals/internal/services/archive/domain"

	"github.com/alicebob/miniredis/v2"
)

func TestLastPassRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := kv.Open(context.Background(), kv.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()
	s := New(store)
	ctx := context.Background()

	if _, ok, err := s.LoadLastPass(ctx); err != nil || ok {
		t.Fatalf("fresh state: ok=%v err=%v", ok, err)
	}

	pass := domain.PassResult{
		Cutoff:    1700000000,
		Sites:     2,
		DaysMoved: 5,
		RowsMoved: 7200,
		StartedAt: time.Unix(1700000100, 0).UTC(),
		ElapsedMS: 1500,
	}
	if err := s.SaveLastPass(ctx, pass); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.LoadLastPass(ctx)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.RowsMoved != 7200 || got.Cutoff != 1700000000 || got.DaysMoved != 5 {
		t.Fatalf("pass = %+v", got)
	}
}
