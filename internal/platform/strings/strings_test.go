package strings

import (
	"testing"

	"vitals/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"a"}
	if got := IfEmpty(nil, def); len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v", got)
	}
	in := []string{"x", "y"}
	if got := IfEmpty(in, def); len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestMustString(t *testing.T) {
	if MustString("ok", "field") != "ok" {
		t.Fatal("value mangled")
	}
	testkit.MustPanic(t, func() { MustString("  ", "field") })
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"backfill":   "/backfill",
		"/backfill":  "/backfill",
		"/backfill/": "/backfill",
		" etl ":      "/etl",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	testkit.MustPanic(t, func() { MustPrefix("  ") })
}
