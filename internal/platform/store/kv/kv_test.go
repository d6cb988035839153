package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := Open(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestGetSetDel(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()

	if _, ok, err := r.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := r.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := r.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("v=%q ok=%v err=%v", v, ok, err)
	}
	if err := r.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := r.Get(ctx, "k"); ok {
		t.Fatal("key survived Del")
	}
}

func TestSetNX(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()

	won, err := r.SetNX(ctx, "lease", "a", time.Minute)
	if err != nil || !won {
		t.Fatalf("first setnx: won=%v err=%v", won, err)
	}
	won, err = r.SetNX(ctx, "lease", "b", time.Minute)
	if err != nil || won {
		t.Fatalf("second setnx must lose: won=%v err=%v", won, err)
	}
	v, _, _ := r.Get(ctx, "lease")
	if v != "a" {
		t.Fatalf("lease = %q", v)
	}
}

func TestTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := Open(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()
	ctx := context.Background()

	if err := r.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)
	if _, ok, _ := r.Get(ctx, "k"); ok {
		t.Fatal("key survived ttl")
	}
}

func TestDelNoKeysIsNoop(t *testing.T) {
	r := testRedis(t)
	if err := r.Del(context.Background()); err != nil {
		t.Fatal(err)
	}
}
