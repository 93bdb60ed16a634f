package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/pflag"

	"github.com/tyler180/nba-stats-backends/internal/backend"
	"github.com/tyler180/nba-stats-backends/internal/config"
	"github.com/tyler180/nba-stats-backends/internal/logger"
	"github.com/tyler180/nba-stats-backends/tools/nba-sync/internal/app/syncer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nba-sync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	var ev syncer.Event
	var chunkTotal, chunkIndex int
	fs := pflag.NewFlagSet("nba-sync", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	fs.StringVar(&ev.Mode, "mode", syncer.ModeWarm, "warm | refresh | catalog | materialize | predict")
	fs.StringVar(&ev.TeamList, "teams", "", "comma separated team abbreviations or ids (default all)")
	fs.IntVar(&chunkTotal, "chunk-total", 0, "split the league into this many chunks")
	fs.IntVar(&chunkIndex, "chunk-index", 0, "chunk to process when --chunk-total is set")
	fs.IntVar(&ev.LastN, "last-n", 10, "game window for materialize and predict")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if chunkTotal > 0 {
		ev.TeamChunkTotal, ev.TeamChunkIndex = &chunkTotal, &chunkIndex
	}

	log := logger.New(cfg.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clients backend.AWS
	if backend.NeedsAWS(cfg) {
		if clients, err = backend.LoadAWS(ctx); err != nil {
			return err
		}
	}
	b, err := backend.New(cfg, log, clients, backend.Options{})
	if err != nil {
		return err
	}

	scfg := syncer.Config{
		Logger:   log,
		Datasets: b.Datasets,
		Backend:  cfg.CacheBackend,
		AthenaDB: cfg.AthenaDB,
	}
	if b.Catalog != nil {
		scfg.Catalog = b.Catalog
	}
	if b.Exporter != nil && b.Runner != nil {
		scfg.Exporter, scfg.Runner = b.Exporter, b.Runner
	}
	svc, err := syncer.New(scfg)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.StartWithOptions(svc.Handler(), lambda.WithContext(ctx))
		return nil
	}

	res, err := svc.Run(ctx, ev)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
