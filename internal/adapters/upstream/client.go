// Package upstream is the IoT API adapter: cursor-paginated timeseries reads
// and the configured-points inventory. All wire quirks (lowercase auth
// header, millisecond timestamps, ISO-8601 window params) are absorbed here.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vitals/internal/core/sample"
	perr "vitals/internal/platform/errors"
	"vitals/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Config configures the client
type Config struct {
	BaseURL  string
	Token    string
	PageSize int

	// Timeout caps one HTTP round trip (default 30s)
	Timeout time.Duration

	// MaxRetries is attempts per page beyond the first (default 2, i.e. 3 total)
	MaxRetries uint64

	// RetryBase is the initial backoff delay (default 500ms)
	RetryBase time.Duration

	// RawData requests native-cadence samples instead of 5-minute buckets.
	// The ingestion path always sets this true.
	RawData bool
}

// Page is one normalized page of upstream samples
type Page struct {
	Samples    []sample.Sample
	NextCursor string

	// Received is the raw row count before normalization dropped
	// non-finite values; the empty-page rules key off this
	Received int

	// Dropped counts rows rejected at normalization
	Dropped int
}

// Client talks to the upstream IoT API
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New builds a Client with retry and circuit-breaker wiring
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: cb,
	}
}

// FetchPage retrieves one page of samples for site within [start, end].
// The window is sent as ISO-8601 UTC instants; cursor is opaque and empty on
// the first call. Transient failures are retried with jittered backoff.
func (c *Client) FetchPage(
	ctx context.Context,
	site string,
	start, end time.Time,
	cursor string,
) (Page, error) {
	q := url.Values{}
	q.Set("start_time", start.UTC().Format(time.RFC3339))
	q.Set("end_time", end.UTC().Format(time.RFC3339))
	q.Set("page_size", strconv.Itoa(c.cfg.PageSize))
	q.Set("raw_data", strconv.FormatBool(c.cfg.RawData))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := fmt.Sprintf("%s/api/sites/%s/timeseries/paginated?%s",
		c.cfg.BaseURL, url.PathEscape(site), q.Encode())

	var resp paginatedResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return Page{}, err
	}

	page := Page{NextCursor: resp.NextCursor, Received: len(resp.Data)}
	page.Samples = make([]sample.Sample, 0, len(resp.Data))
	for _, w := range resp.Data {
		s, ok := sample.FromWire(site, w.PointName, w.TimestampMS, w.Value)
		if !ok {
			page.Dropped++
			continue
		}
		page.Samples = append(page.Samples, s)
	}
	if page.Dropped > 0 {
		logger.C(ctx).Warn().
			Int("dropped", page.Dropped).
			Int("received", page.Received).
			Msg("upstream: dropped non-finite or malformed rows")
	}
	return page, nil
}

// ConfiguredPoints returns the site's point inventory
func (c *Client) ConfiguredPoints(ctx context.Context, site string) ([]ConfiguredPoint, error) {
	u := fmt.Sprintf("%s/api/sites/%s/configured_points", c.cfg.BaseURL, url.PathEscape(site))
	var resp configuredPointsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// getJSON performs one GET with auth, retry, and breaker wiring
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	op := func() error {
		body, err := c.doOnce(ctx, u)
		if err != nil {
			if perr.IsUpstreamTransient(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(perr.Wrap(err, perr.ErrorCodeJSON, "upstream: malformed response"))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBase
	bo.Multiplier = 2
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0 // bounded by MaxRetries + ctx

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
}

// doOnce runs a single request through the circuit breaker
func (c *Client) doOnce(ctx context.Context, u string) ([]byte, error) {
	body, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		// The upstream only accepts a lowercase header name. Header.Set would
		// canonicalize to "Authorization", so write the map entry directly.
		req.Header["authorization"] = []string{"Bearer " + c.cfg.Token}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "upstream: request failed")
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			// drain so the connection can be reused
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, perr.FromUpstreamStatus(resp.StatusCode, u)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "upstream: circuit open")
		}
		return nil, err
	}
	return body.([]byte), nil
}
