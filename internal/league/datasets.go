// Package league wraps the cached datasets and exposes the Team, Player and
// Game entities used by the tools.
package league

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

const (
	TeamsKey   = "teams"
	PlayersKey = "players"
)

var ErrInvalidArgument = errors.New("league: invalid argument")

// TeamSeasonKey is the cache key of a team's season game log.
func TeamSeasonKey(teamID, season string) string {
	return teamID + "_" + season
}

// Source is the remote side of every dataset and entity lookup.
type Source interface {
	GameLogSource
	TeamDirectory(ctx context.Context) (*table.Table, error)
	PlayerDirectory(ctx context.Context, season string) (*table.Table, error)
	TeamShots(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error)
	TeamPasses(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error)
	TeamRebounds(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error)
	TeamRoster(ctx context.Context, teamID, season string) (*table.Table, error)
	PlayerCareerStats(ctx context.Context, playerID string) (*table.Table, error)
	PlayerProfile(ctx context.Context, playerID string) (*table.Table, error)
	PlayerShotDashboard(ctx context.Context, playerID, teamID string, opts nba.DashOptions) ([]*table.Table, error)
	ShotChartDetail(ctx context.Context, opts nba.ShotChartOptions) (*table.Table, error)
	BoxScore(ctx context.Context, gameID string, kind nba.BoxScoreKind) (*table.Table, error)
}

// GameLogSource provides team game logs.
type GameLogSource interface {
	TeamGameLog(ctx context.Context, teamID, season string) (*table.Table, error)
}

// Loader is the read-through cache.
type Loader interface {
	LoadOrFetch(ctx context.Context, key string, fetch cache.FetchFunc, invalidate bool) (*table.Table, error)
}

type DatasetsConfig struct {
	Logger   *slog.Logger
	Cache    Loader
	Source   Source
	Fallback GameLogSource // optional
	Season   string        // current season, e.g. "2019-20"
}

func (cfg *DatasetsConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Cache == nil {
		return errors.New("cache is required")
	}
	if cfg.Source == nil {
		return errors.New("source is required")
	}
	if cfg.Season == "" {
		return errors.New("season is required")
	}
	return nil
}

type Datasets struct {
	log      *slog.Logger
	cache    Loader
	source   Source
	fallback GameLogSource
	season   string
}

func NewDatasets(cfg DatasetsConfig) (*Datasets, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("league: invalid config: %w", err)
	}
	return &Datasets{
		log:      cfg.Logger,
		cache:    cfg.Cache,
		source:   cfg.Source,
		fallback: cfg.Fallback,
		season:   cfg.Season,
	}, nil
}

// Season is the configured current season.
func (d *Datasets) Season() string { return d.season }

// Teams returns the team directory.
func (d *Datasets) Teams(ctx context.Context, invalidate bool) (*table.Table, error) {
	return d.cache.LoadOrFetch(ctx, TeamsKey, d.source.TeamDirectory, invalidate)
}

type PlayerFilter struct {
	ActiveOnly bool
}

// Players returns the player directory. The cached artifact always holds
// every player; the filter applies after the load.
func (d *Datasets) Players(ctx context.Context, filter PlayerFilter, invalidate bool) (*table.Table, error) {
	all, err := d.cache.LoadOrFetch(ctx, PlayersKey, func(ctx context.Context) (*table.Table, error) {
		return d.source.PlayerDirectory(ctx, d.season)
	}, invalidate)
	if err != nil {
		return nil, err
	}
	if !filter.ActiveOnly {
		return all, nil
	}
	return all.Filter(func(r int) bool {
		v, _ := all.Value("is_active", r)
		return v == true
	}), nil
}

// TeamSeason returns a team's game log for season, oldest game first.
func (d *Datasets) TeamSeason(ctx context.Context, teamID, season string, invalidate bool) (*table.Table, error) {
	if teamID == "" || season == "" {
		return nil, fmt.Errorf("%w: team id and season are required", ErrInvalidArgument)
	}
	return d.cache.LoadOrFetch(ctx, TeamSeasonKey(teamID, season), func(ctx context.Context) (*table.Table, error) {
		t, err := d.source.TeamGameLog(ctx, teamID, season)
		if err != nil && d.fallback != nil {
			d.log.Warn("league: primary game log failed, using fallback", "team", teamID, "season", season, "error", err)
			fb, ferr := d.fallback.TeamGameLog(ctx, teamID, season)
			if ferr != nil {
				return nil, errors.Join(err, ferr)
			}
			t, err = fb, nil
		}
		if err != nil || t == nil {
			return nil, err
		}
		return nba.SortGameLog(t), nil
	}, invalidate)
}
