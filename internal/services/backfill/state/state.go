// Package state persists backfill job state in the coordination store.
// Keys: backfill:{job}:state, backfill:active
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"vitals/internal/platform/store/kv"
	"vitals/internal/services/backfill/domain"
)

const activeKey = "backfill:active"

// KV implements domain.StatePort
type KV struct {
	kv kv.KV
}

// New wires the state adapter
func New(store kv.KV) *KV { return &KV{kv: store} }

func jobKey(id string) string { return fmt.Sprintf("backfill:%s:state", id) }

// SaveJob implements domain.StatePort; the whole snapshot goes in one Set so
// restarts always observe a consistent (CurrentDate, CurrentCursor) pair
func (s *KV) SaveJob(ctx context.Context, j *domain.Job) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, jobKey(j.ID), string(raw), 0)
}

// LoadJob implements domain.StatePort
func (s *KV) LoadJob(ctx context.Context, id string) (*domain.Job, bool, error) {
	v, ok, err := s.kv.Get(ctx, jobKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var j domain.Job
	if err := json.Unmarshal([]byte(v), &j); err != nil {
		return nil, false, err
	}
	return &j, true, nil
}

// ActiveJob implements domain.StatePort
func (s *KV) ActiveJob(ctx context.Context) (string, bool, error) {
	return s.kv.Get(ctx, activeKey)
}

// SetActiveJob implements domain.StatePort
func (s *KV) SetActiveJob(ctx context.Context, id string) error {
	if id == "" {
		return s.kv.Del(ctx, activeKey)
	}
	return s.kv.Set(ctx, activeKey, id, 0)
}
