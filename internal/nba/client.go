// Package nba is a thin client for the stats.nba.com JSON API. It decodes
// result sets into tables and performs no caching of its own.
package nba

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tyler180/nba-stats-backends/internal/metrics"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

const (
	DefaultBaseURL = "https://stats.nba.com/stats"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer   = "https://www.nba.com/"
)

type ClientConfig struct {
	Logger     *slog.Logger
	HTTPClient *http.Client // optional, built from Timeout when nil
	BaseURL    string
	Timeout    time.Duration

	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
	// Cooldown is the wait after a 429 without a Retry-After header.
	Cooldown time.Duration
}

func (cfg *ClientConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 800 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 10 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 7 * time.Second
	}
	return nil
}

type Client struct {
	log  *slog.Logger
	http *http.Client
	cfg  ClientConfig
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("nba: invalid config: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{log: cfg.Logger, http: hc, cfg: cfg}, nil
}

// StatusError is a non-retryable (or retry-exhausted) HTTP status.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nba: %s returned status %d", e.Endpoint, e.Status)
}

// ResultSet is one named table in a stats response.
type ResultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// Table converts the result set, inferring column kinds.
func (rs ResultSet) Table() (*table.Table, error) {
	t, err := table.FromRecords(rs.Headers, rs.RowSet)
	if err != nil {
		return nil, fmt.Errorf("nba: result set %s: %w", rs.Name, err)
	}
	return t, nil
}

type Response struct {
	Resource   string      `json:"resource"`
	ResultSets []ResultSet `json:"resultSets"`
	// a few endpoints answer with a single object under resultSet
	ResultSet *ResultSet `json:"resultSet"`
}

// Set returns the i-th result set as a table.
func (r *Response) Set(i int) (*table.Table, error) {
	sets := r.ResultSets
	if len(sets) == 0 && r.ResultSet != nil {
		sets = []ResultSet{*r.ResultSet}
	}
	if i < 0 || i >= len(sets) {
		return nil, fmt.Errorf("nba: %s has %d result sets, want index %d", r.Resource, len(sets), i)
	}
	return sets[i].Table()
}

// Get calls endpoint with params and decodes the JSON body. It retries on
// transport errors, 429 and 5xx with capped jittered backoff and honours
// Retry-After.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	u := c.cfg.BaseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.log.Debug("nba: retrying request", "endpoint", endpoint, "attempt", attempt+1, "error", lastErr)
		}
		var wait time.Duration
		body, status, retryAfter, err := c.do(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.StatsRequestsTotal.WithLabelValues(endpoint, "error").Inc()
			lastErr = err
			wait = backoff(attempt, c.cfg.RetryBase, c.cfg.RetryMax)
		} else {
			metrics.StatsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
			switch {
			case status == http.StatusOK:
				var resp Response
				dec := json.NewDecoder(bytes.NewReader(body))
				dec.UseNumber()
				if err := dec.Decode(&resp); err != nil {
					return nil, fmt.Errorf("nba: decode %s: %w", endpoint, err)
				}
				if resp.Resource == "" {
					resp.Resource = endpoint
				}
				return &resp, nil
			case status == http.StatusTooManyRequests:
				lastErr = &StatusError{Endpoint: endpoint, Status: status}
				var ok bool
				if wait, ok = parseRetryAfter(retryAfter); !ok {
					wait = c.cfg.Cooldown
				}
			case status >= 500 && status <= 599:
				lastErr = &StatusError{Endpoint: endpoint, Status: status}
				wait = backoff(attempt, c.cfg.RetryBase, c.cfg.RetryMax)
			default:
				return nil, &StatusError{Endpoint: endpoint, Status: status}
			}
		}

		// final attempt: fail without sleeping
		if attempt == c.cfg.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("nba: exhausted %d attempts for %s: %w", c.cfg.MaxAttempts, endpoint, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", referer)
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", err
	}
	return b, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// parseRetryAfter reads delay-seconds or an HTTP-date. ok is false when the
// header is absent or unparseable; a zero delay with ok set means retry now.
func parseRetryAfter(h string) (d time.Duration, ok bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(h); err == nil {
		return max(time.Until(t), 0), true
	}
	return 0, false
}

// exponential + jitter, capped
func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(1<<attempt)
	j := time.Duration(rand.Int63n(int64(base)/2 + 1))
	if d+j > max {
		return max
	}
	return d + j
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
