// Package cache implements the query result cache over the coordination
// store. Keys: query:cache:{hash}. Per-entry TTLs implement the age tiers;
// the size ceiling and LRU eviction are delegated to redis maxmemory with
// an allkeys-lru policy.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"vitals/internal/platform/store/kv"
	"vitals/internal/services/query/domain"
)

// KV implements domain.CachePort
type KV struct {
	kv kv.KV
}

// New wires the cache; a nil store disables it (callers check for nil)
func New(store kv.KV) *KV {
	if store == nil {
		return nil
	}
	return &KV{kv: store}
}

// Key builds the stable hash for one query shape:
// sha256 over (site, sorted points, start, end)
func Key(site string, points []string, start, end int64) string {
	sorted := append([]string(nil), points...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(site))
	h.Write([]byte{0})
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write([]byte(strconv.FormatInt(start, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(end, 10)))
	return fmt.Sprintf("query:cache:%s", hex.EncodeToString(h.Sum(nil)))
}

// TTLForAge picks the cache lifetime from how old the queried data is
// (age = now - query end). Older data changes less, so it caches longer.
func TTLForAge(age time.Duration) time.Duration {
	switch {
	case age < 24*time.Hour:
		return 5 * time.Minute
	case age < 7*24*time.Hour:
		return 30 * time.Minute
	case age < 30*24*time.Hour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Get implements domain.CachePort
func (c *KV) Get(ctx context.Context, key string) (map[string][]domain.SeriesPoint, bool, error) {
	v, ok, err := c.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var series map[string][]domain.SeriesPoint
	if err := json.Unmarshal([]byte(v), &series); err != nil {
		// a corrupt entry behaves like a miss and gets overwritten
		return nil, false, nil
	}
	return series, true, nil
}

// Set implements domain.CachePort
func (c *KV) Set(ctx context.Context, key string, series map[string][]domain.SeriesPoint, ttl time.Duration) error {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	if err := enc.Encode(series); err != nil {
		return err
	}
	return c.kv.Set(ctx, key, strings.TrimSuffix(sb.String(), "\n"), ttl)
}
