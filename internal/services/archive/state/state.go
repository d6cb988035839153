// Package state records archival pass results in the coordination store
package state

import (
	"context"
	"encoding/json"

	"vitals/internal/platform/store/kv"
	"vitals/internal/services/archive/domain"
)

const lastPassKey = "archive:last_pass"

// KV implements domain.StatePort
type KV struct {
	kv kv.KV
}

// New wires the state adapter
func New(store kv.KV) *KV { return &KV{kv: store} }

// SaveLastPass implements domain.StatePort
func (s *KV) SaveLastPass(ctx context.Context, p domain.PassResult) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, lastPassKey, string(raw), 0)
}

// LoadLastPass implements domain.StatePort
func (s *KV) LoadLastPass(ctx context.Context) (domain.PassResult, bool, error) {
	v, ok, err := s.kv.Get(ctx, lastPassKey)
	if err != nil || !ok {
		return domain.PassResult{}, false, err
	}
	var p domain.PassResult
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return domain.PassResult{}, false, err
	}
	return p, true, nil
}
