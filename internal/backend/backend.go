// Package backend assembles the cache stack from a config.Config. Both the
// sync tool and the dashboard build on it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tyler180/nba-stats-backends/internal/bref"
	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/catalog"
	"github.com/tyler180/nba-stats-backends/internal/config"
	"github.com/tyler180/nba-stats-backends/internal/league"
	"github.com/tyler180/nba-stats-backends/internal/materializer"
	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/store"
)

// AWS holds the service clients. Any of them may be nil when the
// configuration does not need it.
type AWS struct {
	S3       store.S3API
	DynamoDB catalog.DynamoDBAPI
	Athena   materializer.AthenaAPI
}

// NeedsAWS reports whether cfg uses any AWS service.
func NeedsAWS(cfg config.Config) bool {
	return cfg.CacheBackend == config.BackendS3 || cfg.CatalogTable != "" || cfg.AthenaOutput != ""
}

// LoadAWS builds clients from the default credential chain.
func LoadAWS(ctx context.Context) (AWS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWS{}, fmt.Errorf("aws config: %w", err)
	}
	return AWS{
		S3:       s3.NewFromConfig(awsCfg),
		DynamoDB: dynamodb.NewFromConfig(awsCfg),
		Athena:   athena.NewFromConfig(awsCfg),
	}, nil
}

type Backend struct {
	Config   config.Config
	Store    store.Store
	Cache    *cache.Cache
	Catalog  *catalog.Catalog // nil without a catalog table
	Stats    *nba.Client
	Datasets *league.Datasets
	// Exporter and Runner are nil unless the s3 backend and an Athena
	// output location are configured.
	Exporter *materializer.Exporter
	Runner   *materializer.Runner
}

// Options overrides parts of the assembly, mostly for tests.
type Options struct {
	HTTPClient *http.Client
	// Source replaces the stats.nba.com client as the dataset source.
	Source league.Source
}

// New wires the store, cache, catalog and dataset layer described by cfg.
func New(cfg config.Config, log *slog.Logger, clients AWS, opts Options) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Backend{Config: cfg}

	var err error
	switch cfg.CacheBackend {
	case config.BackendS3:
		if clients.S3 == nil {
			return nil, errors.New("backend: s3 client is required for the s3 backend")
		}
		b.Store, err = store.NewS3Store(store.S3StoreConfig{
			Logger: log,
			Client: clients.S3,
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		})
	default:
		b.Store, err = store.NewFileStore(store.FileStoreConfig{Logger: log, Root: cfg.DataDir})
	}
	if err != nil {
		return nil, err
	}

	var recorder cache.Recorder
	if cfg.CatalogTable != "" {
		if clients.DynamoDB == nil {
			return nil, errors.New("backend: dynamodb client is required for the catalog")
		}
		b.Catalog, err = catalog.New(catalog.Config{
			Logger:  log,
			Client:  clients.DynamoDB,
			Table:   cfg.CatalogTable,
			Backend: cfg.CacheBackend,
		})
		if err != nil {
			return nil, err
		}
		recorder = b.Catalog
	}

	b.Cache, err = cache.New(cache.Config{
		Logger:        log,
		Store:         b.Store,
		Recorder:      recorder,
		DedupeFetches: cfg.DedupeFetches,
	})
	if err != nil {
		return nil, err
	}

	b.Stats, err = nba.NewClient(nba.ClientConfig{
		Logger:      log,
		HTTPClient:  opts.HTTPClient,
		BaseURL:     cfg.StatsBaseURL,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.HTTPMaxAttempts,
		RetryBase:   cfg.HTTPRetryBase,
		RetryMax:    cfg.HTTPRetryMax,
	})
	if err != nil {
		return nil, err
	}

	var source league.Source = b.Stats
	if opts.Source != nil {
		source = opts.Source
	}
	var fallback league.GameLogSource
	if cfg.GameLogFallback {
		fallback, err = bref.NewClient(bref.ClientConfig{
			Logger:      log,
			HTTPClient:  opts.HTTPClient,
			MaxAttempts: cfg.HTTPMaxAttempts,
		})
		if err != nil {
			return nil, err
		}
	}

	b.Datasets, err = league.NewDatasets(league.DatasetsConfig{
		Logger:   log,
		Cache:    b.Cache,
		Source:   source,
		Fallback: fallback,
		Season:   cfg.Season,
	})
	if err != nil {
		return nil, err
	}

	if cfg.CacheBackend == config.BackendS3 && cfg.AthenaOutput != "" && clients.Athena != nil {
		b.Exporter, err = materializer.NewExporter(materializer.ExporterConfig{
			Logger: log,
			Client: clients.S3,
			Bucket: cfg.S3Bucket,
			Prefix: path.Join(cfg.S3Prefix, "exports"),
		})
		if err != nil {
			return nil, err
		}
		b.Runner = &materializer.Runner{
			Client:    clients.Athena,
			Workgroup: cfg.AthenaWorkgroup,
			Database:  cfg.AthenaDB,
			OutputS3:  cfg.AthenaOutput,
			Logger:    log,
		}
	}

	log.Debug("backend: ready",
		"cache_backend", cfg.CacheBackend,
		"catalog", cfg.CatalogTable,
		"season", cfg.Season,
		"fallback", cfg.GameLogFallback,
		"materializer", b.Runner != nil,
	)
	return b, nil
}
