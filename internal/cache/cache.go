// Package cache implements the read-through cache over a Store: a dataset is
// fetched from the remote source once, persisted, and served from the store
// until a caller forces invalidation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tyler180/nba-stats-backends/internal/metrics"
	"github.com/tyler180/nba-stats-backends/internal/store"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FetchFunc retrieves a dataset from the remote source.
type FetchFunc func(ctx context.Context) (*table.Table, error)

// Recorder is told about every table written by the cache.
type Recorder interface {
	Record(ctx context.Context, key string, t *table.Table) error
}

type Config struct {
	Logger   *slog.Logger
	Store    store.Store
	Recorder Recorder // optional

	// DedupeFetches shares one in-flight fetch between concurrent misses on
	// the same key.
	DedupeFetches bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	return nil
}

type Cache struct {
	log      *slog.Logger
	store    store.Store
	recorder Recorder
	dedupe   bool
	group    singleflight.Group
}

func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", err)
	}
	return &Cache{
		log:      cfg.Logger,
		store:    cfg.Store,
		recorder: cfg.Recorder,
		dedupe:   cfg.DedupeFetches,
	}, nil
}

// ValidateKey reports whether key can name exactly one artifact.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// LoadOrFetch returns the stored table for key. When invalidate is true, or
// the key has no usable artifact, it calls fetch, stores the result and
// returns it. A fetch failure writes nothing and leaves any previous artifact
// in place.
func (c *Cache) LoadOrFetch(ctx context.Context, key string, fetch FetchFunc, invalidate bool) (*table.Table, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	if invalidate {
		metrics.CacheLookupsTotal.WithLabelValues("invalidate").Inc()
	} else {
		t, found, err := c.store.Load(ctx, key)
		var serr *store.SerializationError
		switch {
		case errors.As(err, &serr):
			metrics.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
			c.log.Warn("cache: corrupt artifact, refetching", "key", key, "error", err)
		case err != nil:
			return nil, err
		case found:
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			c.log.Debug("cache: hit", "key", key)
			return t, nil
		default:
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
			c.log.Debug("cache: miss", "key", key)
		}
	}

	if !c.dedupe {
		return c.fetchAndStore(ctx, key, fetch)
	}
	// Plain misses share one fetch. An invalidating call never joins them:
	// it must run its own fetch.
	flight := key
	if invalidate {
		flight = key + "\x00invalidate"
	}
	v, err, shared := c.group.Do(flight, func() (any, error) {
		return c.fetchAndStore(ctx, key, fetch)
	})
	if shared {
		c.log.Debug("cache: shared in-flight fetch", "key", key)
	}
	if err != nil {
		return nil, err
	}
	return v.(*table.Table), nil
}

func (c *Cache) fetchAndStore(ctx context.Context, key string, fetch FetchFunc) (*table.Table, error) {
	start := time.Now()
	t, err := fetch(ctx)
	metrics.CacheFetchDuration.Observe(time.Since(start).Seconds())
	if err == nil && t == nil {
		err = errors.New("fetch returned no table")
	}
	if err != nil {
		metrics.CacheFetchErrorsTotal.Inc()
		return nil, &FetchError{Key: key, Err: err}
	}

	if err := c.store.Save(ctx, key, t); err != nil {
		return nil, err
	}
	c.log.Info("cache: fetched dataset", "key", key, "rows", t.NumRows(), "cols", t.NumCols(), "duration", time.Since(start))

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, key, t); err != nil {
			c.log.Warn("cache: failed to record write", "key", key, "error", err)
		}
	}
	return t, nil
}
