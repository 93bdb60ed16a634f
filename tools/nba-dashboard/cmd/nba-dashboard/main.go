package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tyler180/nba-stats-backends/internal/backend"
	"github.com/tyler180/nba-stats-backends/internal/config"
	"github.com/tyler180/nba-stats-backends/internal/logger"
	"github.com/tyler180/nba-stats-backends/tools/nba-dashboard/internal/app/dashboard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nba-dashboard: %v\n", err)
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
	var origins []string
	fs := pflag.NewFlagSet("nba-dashboard", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	fs.StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default localhost)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
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
	srv, err := dashboard.NewServer(dashboard.Config{Logger: log, Datasets: b.Datasets, AllowedOrigins: origins})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
