package service

import (
	"testing"

	"vitals/internal/services/query/domain"
)

func TestPlanRange(t *testing.T) {
	const boundary = int64(1000)

	cases := []struct {
		name       string
		start, end int64
		want       domain.Strategy
	}{
		{"entirely recent", 1000, 2000, domain.StrategyHotOnly},
		{"start after boundary", 1500, 2000, domain.StrategyHotOnly},
		{"entirely old", 100, 900, domain.StrategyColdOnly},
		{"end exactly at boundary", 100, 1000, domain.StrategyColdOnly},
		{"straddles boundary", 500, 1500, domain.StrategySplit},
		{"one second each side", 999, 1001, domain.StrategySplit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			plan := PlanRange(c.start, c.end, boundary)
			if plan.Strategy != c.want {
				t.Fatalf("strategy = %s, want %s", plan.Strategy, c.want)
			}
		})
	}
}

func TestPlanRangeSplitCutsAtBoundary(t *testing.T) {
	plan := PlanRange(500, 1500, 1000)
	if plan.ColdStart != 500 || plan.ColdEnd != 1000 {
		t.Fatalf("cold = [%d, %d)", plan.ColdStart, plan.ColdEnd)
	}
	if plan.HotStart != 1000 || plan.HotEnd != 1500 {
		t.Fatalf("hot = [%d, %d)", plan.HotStart, plan.HotEnd)
	}
}

func TestDaysIn(t *testing.T) {
	// [2024-01-01T12:00, 2024-01-03T00:00) touches exactly two days
	start := int64(1704110400)
	end := int64(1704240000)
	days := daysIn(start, end)
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
	if days[0].Unix() != 1704067200 {
		t.Fatalf("first day = %d", days[0].Unix())
	}
	if len(daysIn(100, 100)) != 0 {
		t.Fatal("empty range produced days")
	}
}
