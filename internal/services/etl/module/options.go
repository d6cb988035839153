package module

import (
	"time"

	"vitals/internal/platform/config"
	"vitals/internal/platform/net/middleware"
	etlsvc "vitals/internal/services/etl/service"
)

// Options configure the etl module beyond shared deps
type Options struct {
	Sites []string
	Svc   etlsvc.Config

	// Auth guards /trigger; nil leaves it open (tests)
	Auth middleware.AuthPort
}

// FromConfig reads CORE_ETL_* into Options. The trigger endpoint shares the
// operator token with the backfill control endpoints (CORE_API_BEARER_TOKEN).
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_ETL_")
	var auth middleware.AuthPort
	if tok := cfg.Prefix("CORE_API_").MayString("BEARER_TOKEN", ""); tok != "" {
		auth = middleware.StaticToken{Token: tok}
	}
	return Options{
		Sites: c.MayCSV("SITES", nil),
		Auth:  auth,
		Svc: etlsvc.Config{
			LookbackBuffer:  c.MayDuration("LOOKBACK_BUFFER", 90*time.Minute),
			FirstSyncWindow: c.MayDuration("FIRST_SYNC_WINDOW", 24*time.Hour),
			StaleAfter:      c.MayDuration("STALE_AFTER", 7*24*time.Hour),
			BatchSize:       c.MayInt("BATCH_SIZE", 1000),
			MaxPagesPerSync: c.MayInt("MAX_PAGES_PER_SYNC", 50),
			LeaseTTL:        c.MayDuration("LEASE_TTL", 4*time.Minute),
		},
	}
}
