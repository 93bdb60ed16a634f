// Package config loads the settings shared by the sync and dashboard tools.
// Values come from the environment (optionally seeded from a .env file) and
// can be overridden by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	BackendFile = "file"
	BackendS3   = "s3"

	DefaultDataDir      = "nba_data"
	DefaultSeason       = "2019-20"
	DefaultStatsBaseURL = "https://stats.nba.com/stats"
	DefaultListenAddr   = ":8050"
)

type Config struct {
	DataDir      string
	CacheBackend string
	S3Bucket     string
	S3Prefix     string
	CatalogTable string
	Season       string

	StatsBaseURL    string
	HTTPTimeout     time.Duration
	HTTPMaxAttempts int
	HTTPRetryBase   time.Duration
	HTTPRetryMax    time.Duration

	DedupeFetches   bool
	GameLogFallback bool

	AthenaDB        string
	AthenaWorkgroup string
	AthenaOutput    string

	ListenAddr string
	Debug      bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// LoadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// FromEnv is Load over the process environment.
func FromEnv() (Config, error) { return Load(os.LookupEnv) }

// Load builds a Config from lookup, applying defaults for unset values.
func Load(lookup LookupFunc) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		DataDir:         e.str("NBA_DATA_DIR", DefaultDataDir),
		CacheBackend:    strings.ToLower(e.str("NBA_CACHE_BACKEND", BackendFile)),
		S3Bucket:        e.str("NBA_S3_BUCKET", ""),
		S3Prefix:        strings.Trim(e.str("NBA_S3_PREFIX", "nba_data"), "/"),
		CatalogTable:    e.str("NBA_CATALOG_TABLE", ""),
		Season:          e.str("SEASON", DefaultSeason),
		StatsBaseURL:    strings.TrimRight(e.str("NBA_STATS_BASE_URL", DefaultStatsBaseURL), "/"),
		HTTPTimeout:     e.millis("HTTP_TIMEOUT_MS", 30*time.Second),
		HTTPMaxAttempts: e.int("HTTP_MAX_ATTEMPTS", 5),
		HTTPRetryBase:   e.millis("HTTP_RETRY_BASE_MS", 800*time.Millisecond),
		HTTPRetryMax:    e.millis("HTTP_RETRY_MAX_MS", 10*time.Second),
		DedupeFetches:   e.bool("NBA_DEDUPE_FETCHES", true),
		GameLogFallback: e.bool("NBA_GAMELOG_FALLBACK", false),
		AthenaDB:        e.str("ATHENA_DB", "nba"),
		AthenaWorkgroup: e.str("ATHENA_WORKGROUP", "primary"),
		AthenaOutput:    e.str("ATHENA_OUTPUT", ""),
		ListenAddr:      e.str("LISTEN_ADDR", DefaultListenAddr),
		Debug:           e.bool("DEBUG", false),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// BindFlags registers flags that override the loaded values when parsed.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "local cache root directory")
	fs.StringVar(&c.CacheBackend, "cache-backend", c.CacheBackend, "cache backend: file or s3")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "bucket for the s3 cache backend")
	fs.StringVar(&c.S3Prefix, "s3-prefix", c.S3Prefix, "key prefix for the s3 cache backend")
	fs.StringVar(&c.CatalogTable, "catalog-table", c.CatalogTable, "DynamoDB table recording cache writes (optional)")
	fs.StringVar(&c.Season, "season", c.Season, "season, e.g. 2019-20")
	fs.StringVar(&c.StatsBaseURL, "stats-base-url", c.StatsBaseURL, "stats.nba.com base URL")
	fs.DurationVar(&c.HTTPTimeout, "http-timeout", c.HTTPTimeout, "per-request HTTP timeout")
	fs.IntVar(&c.HTTPMaxAttempts, "http-max-attempts", c.HTTPMaxAttempts, "attempts per stats request")
	fs.BoolVar(&c.DedupeFetches, "dedupe-fetches", c.DedupeFetches, "share in-flight fetches per cache key")
	fs.BoolVar(&c.GameLogFallback, "gamelog-fallback", c.GameLogFallback, "fall back to basketball-reference for game logs")
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "dashboard listen address")
	fs.BoolVarP(&c.Debug, "verbose", "v", c.Debug, "debug logging")
}

func (c Config) Validate() error {
	switch c.CacheBackend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("config: data dir is required for the file backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return errors.New("config: NBA_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.CacheBackend)
	}
	if c.Season == "" {
		return errors.New("config: season is required")
	}
	if c.StatsBaseURL == "" {
		return errors.New("config: stats base URL is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: HTTP timeout must be positive")
	}
	if c.HTTPMaxAttempts < 1 {
		return errors.New("config: HTTP max attempts must be at least 1")
	}
	return nil
}

type env struct {
	lookup LookupFunc
	err    error
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) int(k string, def int) int {
	s := e.str(k, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		e.fail(k, s, err)
		return def
	}
	return n
}

func (e *env) millis(k string, def time.Duration) time.Duration {
	s := e.str(k, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		e.fail(k, s, err)
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (e *env) bool(k string, def bool) bool {
	s := e.str(k, "")
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		e.fail(k, s, err)
		return def
	}
	return b
}

func (e *env) fail(k, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s=%q: %w", k, v, err)
	}
}
