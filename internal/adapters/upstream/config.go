package upstream

import (
	"time"

	"vitals/internal/platform/config"
)

// FromConfig builds the shared client from UPSTREAM_* env.
// UPSTREAM_BASE_URL and UPSTREAM_TOKEN are required; the rest default.
func FromConfig(cfg config.Conf) *Client {
	c := cfg.Prefix("UPSTREAM_")
	return New(Config{
		BaseURL:    c.MustString("BASE_URL"),
		Token:      c.MustString("TOKEN"),
		PageSize:   c.MayInt("PAGE_SIZE", 100000),
		Timeout:    c.MayDuration("TIMEOUT", 30*time.Second),
		MaxRetries: uint64(c.MayInt("MAX_RETRIES", 2)),
		RetryBase:  c.MayDuration("RETRY_BASE", 500*time.Millisecond),
		RawData:    c.MayBool("RAW_DATA", true),
	})
}
