package repo

import (
	"context"

	"vitals/internal/platform/store/ch"
	"vitals/internal/services/archive/domain"
)

// RollupSink writes daily per-point aggregates to clickhouse.
// Table (engine ReplacingMergeTree, order by (site, point, day)):
//
//	rollups_daily(site String, point String, day Date,
//	              n UInt64, min_value Float64, max_value Float64, avg_value Float64)
type RollupSink struct {
	ch *ch.CH
}

// NewRollupSink wires the sink; returns a nil *RollupSink when clickhouse is
// disabled. Callers that store it in a domain.RollupSink check for a nil
// client first, since a typed nil would make the interface non-nil.
func NewRollupSink(c *ch.CH) *RollupSink {
	if c == nil {
		return nil
	}
	return &RollupSink{ch: c}
}

// WriteDaily implements domain.RollupSink
func (r *RollupSink) WriteDaily(ctx context.Context, rollups []domain.Rollup) error {
	if len(rollups) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(rollups))
	for _, ru := range rollups {
		rows = append(rows, []any{ru.Site, ru.Point, ru.Day, ru.Count, ru.Min, ru.Max, ru.Avg})
	}
	return r.ch.InsertBatch(ctx,
		`INSERT INTO rollups_daily (site, point, day, n, min_value, max_value, avg_value)`,
		rows)
}
