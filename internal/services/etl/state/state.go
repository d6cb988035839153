// Package state persists ETL sync state in the coordination store.
// Keys: etl:{site}:last_sync_ts, etl:{site}:errors, etl:{site}:lease
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"vitals/internal/platform/logger"
	"vitals/internal/platform/store/kv"
	"vitals/internal/services/etl/domain"

	"github.com/google/uuid"
)

const (
	// maxErrors bounds the retained error log
	maxErrors = 50

	// errorTTL expires stale diagnostics
	errorTTL = 7 * 24 * time.Hour
)

// KV implements domain.StatePort over the coordination store
type KV struct {
	kv kv.KV

	// Now is a seam for tests; zero means time.Now
	Now func() time.Time
}

// New wires the state adapter
func New(store kv.KV) *KV { return &KV{kv: store} }

func (s *KV) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func watermarkKey(site string) string { return fmt.Sprintf("etl:%s:last_sync_ts", site) }
func errorsKey(site string) string    { return fmt.Sprintf("etl:%s:errors", site) }
func leaseKey(site string) string     { return fmt.Sprintf("etl:%s:lease", site) }

// Watermark implements domain.StatePort
func (s *KV) Watermark(ctx context.Context, site string) (int64, bool, error) {
	v, ok, err := s.kv.Get(ctx, watermarkKey(site))
	if err != nil || !ok {
		return 0, false, err
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// unreadable watermark behaves like a missing one; the sync falls
		// back to the bootstrap window and rewrites it
		logger.C(ctx).Warn().Str("value", v).Msg("etl: unparseable watermark, ignoring")
		return 0, false, nil
	}
	return ts, true, nil
}

// CommitWatermark implements domain.StatePort; lower values are dropped so
// the watermark is monotone regardless of caller ordering
func (s *KV) CommitWatermark(ctx context.Context, site string, ts int64) error {
	cur, ok, err := s.Watermark(ctx, site)
	if err != nil {
		return err
	}
	if ok && ts <= cur {
		return nil
	}
	return s.kv.Set(ctx, watermarkKey(site), strconv.FormatInt(ts, 10), 0)
}

// RecordError implements domain.StatePort
func (s *KV) RecordError(ctx context.Context, site string, msg string) error {
	errs, err := s.RecentErrors(ctx, site)
	if err != nil {
		return err
	}
	errs = append([]domain.SyncError{{At: s.now().UTC(), Message: msg}}, errs...)
	if len(errs) > maxErrors {
		errs = errs[:maxErrors]
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, errorsKey(site), string(raw), errorTTL)
}

// RecentErrors implements domain.StatePort
func (s *KV) RecentErrors(ctx context.Context, site string) ([]domain.SyncError, error) {
	v, ok, err := s.kv.Get(ctx, errorsKey(site))
	if err != nil || !ok {
		return nil, err
	}
	var errs []domain.SyncError
	if err := json.Unmarshal([]byte(v), &errs); err != nil {
		return nil, nil // corrupt log is diagnostics only, start fresh
	}
	return errs, nil
}

// AcquireLease implements domain.StatePort via SetNX + TTL.
// The lease value is unique per holder so a release never deletes a lease
// that expired and was re-acquired elsewhere.
func (s *KV) AcquireLease(
	ctx context.Context,
	site string,
	ttl time.Duration,
) (func(), bool, error) {
	token := uuid.NewString()
	key := leaseKey(site)
	won, err := s.kv.SetNX(ctx, key, token, ttl)
	if err != nil || !won {
		return nil, false, err
	}
	release := func() {
		// best-effort: only delete if we still hold it
		v, ok, err := s.kv.Get(context.Background(), key)
		if err != nil || !ok || v != token {
			return
		}
		_ = s.kv.Del(context.Background(), key)
	}
	return release, true, nil
}
