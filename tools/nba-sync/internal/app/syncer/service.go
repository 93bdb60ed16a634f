// Package syncer runs the batch jobs behind the nba-sync tool: warming and
// refreshing the cache, indexing it in the catalog, materializing Athena
// tables and scoring the baseline model.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tyler180/nba-stats-backends/internal/catalog"
	"github.com/tyler180/nba-stats-backends/internal/league"
	"github.com/tyler180/nba-stats-backends/internal/materializer"
	"github.com/tyler180/nba-stats-backends/internal/model"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

const defaultConcurrency = 4

// CatalogWriter is the part of the catalog the catalog mode needs.
type CatalogWriter interface {
	RecordAll(ctx context.Context, entries []catalog.Entry) error
	List(ctx context.Context) ([]catalog.Entry, error)
}

type GamesExporter interface {
	Location() string
	Export(ctx context.Context, teamID, season string, log *table.Table) error
}

type QueryRunner interface {
	ExecAndWait(ctx context.Context, sql string) (*types.QueryExecution, error)
	QueryInt(ctx context.Context, sql string) (int64, error)
}

type Config struct {
	Logger   *slog.Logger
	Datasets *league.Datasets
	Backend  string

	// Catalog, Exporter and Runner are optional; the modes that need them
	// fail without them.
	Catalog  CatalogWriter
	Exporter GamesExporter
	Runner   QueryRunner
	AthenaDB string

	Concurrency int
	Clock       clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Datasets == nil {
		return errors.New("datasets are required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Service struct {
	cfg Config
	log *slog.Logger
	d   *league.Datasets
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("syncer: invalid config: %w", err)
	}
	return &Service{cfg: cfg, log: cfg.Logger, d: cfg.Datasets}, nil
}

// Handler adapts the service to a Lambda handler.
func (s *Service) Handler() func(ctx context.Context, raw Raw) (Result, error) {
	return func(ctx context.Context, raw Raw) (Result, error) {
		var e Event
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e); err != nil {
				return Result{}, fmt.Errorf("decode event: %w", err)
			}
		}
		return s.Run(ctx, e)
	}
}

// Run executes the job named by e.Mode; warm when empty.
func (s *Service) Run(ctx context.Context, e Event) (Result, error) {
	mode := strings.ToLower(strings.TrimSpace(e.Mode))
	if mode == "" {
		mode = ModeWarm
	}
	season := strings.TrimSpace(e.Season)
	if season == "" {
		season = s.d.Season()
	}
	res := Result{Mode: mode, Season: season}

	all, err := s.d.TeamList(ctx)
	if err != nil {
		return res, fmt.Errorf("team directory: %w", err)
	}
	teams := teamSubset(all, e.TeamList, pickInt(e.TeamChunkTotal, 0), pickInt(e.TeamChunkIndex, 0))
	res.Teams = len(teams)
	s.log.Info("syncer: starting", "mode", mode, "season", season, "teams", len(teams))

	switch mode {
	case ModeWarm:
		err = s.warm(ctx, &res, teams, season, false)
	case ModeRefresh:
		err = s.warm(ctx, &res, teams, season, true)
	case ModeCatalog:
		err = s.catalog(ctx, &res, teams, season)
	case ModeMaterialize:
		err = s.materialize(ctx, &res, teams, season, e.LastN)
	case ModePredict:
		err = s.predict(ctx, &res, teams, season, e.LastN)
	default:
		return res, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return res, err
	}
	s.log.Info("syncer: done", "mode", mode, "season", season, "datasets", res.Datasets, "rows", res.Rows, "failed", len(res.Failed))
	return res, nil
}

type loaded struct {
	key string
	t   *table.Table
}

// directories loads the team and player directories.
func (s *Service) directories(ctx context.Context, invalidate bool) ([]loaded, error) {
	teams, err := s.d.Teams(ctx, invalidate)
	if err != nil {
		return nil, fmt.Errorf("teams: %w", err)
	}
	players, err := s.d.Players(ctx, league.PlayerFilter{}, invalidate)
	if err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}
	return []loaded{{league.TeamsKey, teams}, {league.PlayersKey, players}}, nil
}

// seasons loads the season log of every team with bounded concurrency. A
// team whose log cannot be fetched is reported, not fatal.
func (s *Service) seasons(ctx context.Context, res *Result, teams []*league.Team, season string, invalidate bool) (map[*league.Team]*table.Table, error) {
	var mu sync.Mutex
	out := make(map[*league.Team]*table.Table, len(teams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, tm := range teams {
		g.Go(func() error {
			t, err := s.d.TeamSeason(gctx, tm.ID, season, invalidate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.Warn("syncer: team season failed", "team", tm.Abbreviation, "season", season, "error", err)
				res.Failed = append(res.Failed, tm.Abbreviation)
				return nil
			}
			out[tm] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(res.Failed)
	return out, nil
}

func (r *Result) count(t *table.Table) {
	r.Datasets++
	r.Rows += t.NumRows()
}

func (s *Service) warm(ctx context.Context, res *Result, teams []*league.Team, season string, invalidate bool) error {
	dirs, err := s.directories(ctx, invalidate)
	if err != nil {
		return err
	}
	for _, l := range dirs {
		res.count(l.t)
	}
	logs, err := s.seasons(ctx, res, teams, season, invalidate)
	if err != nil {
		return err
	}
	for _, t := range logs {
		res.count(t)
	}
	return nil
}

func (s *Service) catalog(ctx context.Context, res *Result, teams []*league.Team, season string) error {
	if s.cfg.Catalog == nil {
		return errors.New("catalog mode needs NBA_CATALOG_TABLE")
	}
	items, err := s.directories(ctx, false)
	if err != nil {
		return err
	}
	logs, err := s.seasons(ctx, res, teams, season, false)
	if err != nil {
		return err
	}
	for tm, t := range logs {
		items = append(items, loaded{league.TeamSeasonKey(tm.ID, season), t})
	}

	now := s.cfg.Clock.Now()
	entries := make([]catalog.Entry, 0, len(items))
	for _, l := range items {
		res.count(l.t)
		entries = append(entries, catalog.EntryFor(l.key, s.cfg.Backend, l.t, now))
	}
	if err := s.cfg.Catalog.RecordAll(ctx, entries); err != nil {
		return fmt.Errorf("record catalog: %w", err)
	}
	listed, err := s.cfg.Catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	res.Cataloged = len(listed)
	return nil
}

func (s *Service) materialize(ctx context.Context, res *Result, teams []*league.Team, season string, n int) error {
	if s.cfg.Exporter == nil || s.cfg.Runner == nil {
		return errors.New("materialize mode needs the s3 backend and ATHENA_OUTPUT")
	}
	if n <= 0 {
		n = model.DefaultWindow
	}
	logs, err := s.seasons(ctx, res, teams, season, false)
	if err != nil {
		return err
	}
	for tm, t := range logs {
		if err := s.cfg.Exporter.Export(ctx, tm.ID, season, t); err != nil {
			return err
		}
		res.count(t)
	}

	db := s.cfg.AthenaDB
	for _, q := range []string{
		materializer.BuildCreateGames(db, s.cfg.Exporter.Location()),
		materializer.BuildRepair(db),
		materializer.BuildDropAverages(db),
		materializer.BuildCTASAverages(db, season, n),
	} {
		if _, err := s.cfg.Runner.ExecAndWait(ctx, q); err != nil {
			return fmt.Errorf("athena: %w", err)
		}
	}
	count, err := s.cfg.Runner.QueryInt(ctx, materializer.BuildCountAverages(db))
	if err != nil {
		return fmt.Errorf("athena count: %w", err)
	}
	res.Materialized = count
	return nil
}

func (s *Service) predict(ctx context.Context, res *Result, teams []*league.Team, season string, n int) error {
	b := model.NewBaseline(n)
	logs, err := s.seasons(ctx, res, teams, season, false)
	if err != nil {
		return err
	}
	for tm, t := range logs {
		res.count(t)
		ev, err := b.Evaluate(t)
		if err != nil {
			s.log.Debug("syncer: skipping prediction", "team", tm.Abbreviation, "error", err)
			continue
		}
		res.Predictions = append(res.Predictions, Prediction{
			TeamID:  tm.ID,
			Team:    tm.Abbreviation,
			Samples: ev.Samples,
			MAE:     ev.MAE,
			Next:    ev.Next,
		})
	}
	sort.Slice(res.Predictions, func(i, j int) bool {
		return res.Predictions[i].Team < res.Predictions[j].Team
	})
	return nil
}
