package store

import (
	"context"
	"fmt"
	"time"

	"vitals/internal/platform/store/ch"
	"vitals/internal/platform/store/kv"
	"vitals/internal/platform/store/obj"
	"vitals/internal/platform/store/pg"
)

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	// Connection guardrails: ping with retry/backoff using the *pool* directly
	const (
		maxAttempts    = 20
		pingTimeout    = 3 * time.Second
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for range maxAttempts {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx) // no adapter, no SQL trace line
		cancel()

		if lastErr == nil {
			a := newPGAdapter(p) // publish adapter only after the pool is healthy
			s.PG = a
			return a, nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		time.Sleep(backoff)
		if backoff < backoffCeiling {
			backoff *= 2
			if backoff > backoffCeiling {
				backoff = backoffCeiling
			}
		}
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", maxAttempts, lastErr)
}

// openKV opens the redis coordination store
func openKV(ctx context.Context, c KVConfig, _ *Store) (kv.KV, error) {
	return kv.Open(ctx, kv.Config{
		Addr:     c.Addr,
		DB:       c.DB,
		Password: c.Password,
	})
}

// openObj picks the configured object-store driver
func openObj(ctx context.Context, c ObjConfig, _ *Store) (obj.Store, error) {
	switch c.Driver {
	case "", "s3":
		return obj.OpenS3(ctx, obj.S3Config{
			Bucket:   c.Bucket,
			Region:   c.Region,
			Endpoint: c.Endpoint,
		})
	case "fs":
		return obj.OpenFS(c.Dir)
	default:
		return nil, fmt.Errorf("obj: unknown driver %q", c.Driver)
	}
}

// openCH opens the rollup sink
func openCH(ctx context.Context, c CHConfig, _ *Store) (*ch.CH, error) {
	return ch.Open(ctx, ch.Config{
		Addr:     c.Addr,
		Database: c.Database,
		Username: c.Username,
		Password: c.Password,
	})
}
