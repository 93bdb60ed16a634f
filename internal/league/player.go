package league

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

type Player struct {
	ID   string
	Name string

	d           *Datasets
	mu          sync.Mutex
	currentTeam *Team
}

// CareerFilter restricts career rows. Empty lists do not filter.
type CareerFilter struct {
	Seasons []string
	TeamIDs []string
}

// ShotOptions selects shot-chart rows. An empty TeamID means the player's
// current team and an empty Season the current one.
type ShotOptions struct {
	TeamID         string
	Season         string
	LastNGames     int
	MadeOnly       bool
	OpponentTeamID string
	GameID         string
}

// PlayerDashOptions narrows the player shot dashboard. TeamID and Season
// default like ShotOptions.
type PlayerDashOptions struct {
	TeamID         string
	Season         string
	LastNGames     int
	OpponentTeamID string
}

// result-set positions in the player shot dashboard
const (
	dashOverall         = 0
	dashGeneral         = 1
	dashShotClock       = 2
	dashDribble         = 3
	dashClosestDefender = 4
	dashTouchTime       = 6
)

func (d *Datasets) NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name, d: d}
}

// FindPlayer looks up an active player by full name, ignoring case.
func FindPlayer(ctx context.Context, d *Datasets, name string) (*Player, error) {
	want := strings.TrimSpace(name)
	if want == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidArgument)
	}
	active, err := d.Players(ctx, PlayerFilter{ActiveOnly: true}, false)
	if err != nil {
		return nil, err
	}
	for r := 0; r < active.NumRows(); r++ {
		if strings.EqualFold(cellString(active, "full_name", r), want) {
			return d.NewPlayer(cellString(active, "id", r), cellString(active, "full_name", r)), nil
		}
	}
	return nil, &cache.NotFoundError{Kind: "player", ID: name}
}

// CareerStats returns regular-season totals per season and team.
func (p *Player) CareerStats(ctx context.Context, filter CareerFilter) (*table.Table, error) {
	career, err := p.d.source.PlayerCareerStats(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	seasons := set(filter.Seasons)
	teams := set(filter.TeamIDs)
	if len(seasons) == 0 && len(teams) == 0 {
		return career, nil
	}
	return career.Filter(func(r int) bool {
		if len(seasons) > 0 {
			if _, ok := seasons[cellString(career, "SEASON_ID", r)]; !ok {
				return false
			}
		}
		if len(teams) > 0 {
			if _, ok := teams[cellString(career, "TEAM_ID", r)]; !ok {
				return false
			}
		}
		return true
	}), nil
}

// CurrentTeam resolves the team of the player's latest profile row against
// the team directory. It is fetched on first success and kept afterwards.
func (p *Player) CurrentTeam(ctx context.Context) (*Team, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentTeam != nil {
		return p.currentTeam, nil
	}
	profile, err := p.d.source.PlayerProfile(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	abbr := ""
	for r := profile.NumRows() - 1; r >= 0; r-- {
		// TOT rows aggregate a traded player's stints
		if a := cellString(profile, "TEAM_ABBREVIATION", r); a != "" && a != "TOT" {
			abbr = a
			break
		}
	}
	if abbr == "" {
		return nil, &cache.NotFoundError{Kind: "current team of player", ID: p.ID}
	}
	team, err := p.d.TeamByAbbreviation(ctx, abbr)
	if err != nil {
		return nil, err
	}
	p.currentTeam = team
	return team, nil
}

func (p *Player) teamID(ctx context.Context, teamID string) (string, error) {
	if teamID != "" {
		return teamID, nil
	}
	t, err := p.CurrentTeam(ctx)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (p *Player) season(s string) string {
	if s == "" {
		return p.d.season
	}
	return s
}

// ShotDetails returns the player's individual shots. Shots are not cached.
func (p *Player) ShotDetails(ctx context.Context, opts ShotOptions) (*table.Table, error) {
	teamID, err := p.teamID(ctx, opts.TeamID)
	if err != nil {
		return nil, err
	}
	return p.d.source.ShotChartDetail(ctx, nba.ShotChartOptions{
		PlayerID:       p.ID,
		TeamID:         teamID,
		Season:         p.season(opts.Season),
		LastNGames:     opts.LastNGames,
		OpponentTeamID: opts.OpponentTeamID,
		MadeOnly:       opts.MadeOnly,
		GameID:         opts.GameID,
	})
}

func (p *Player) shotDashboard(ctx context.Context, idx int, opts PlayerDashOptions) (*table.Table, error) {
	teamID, err := p.teamID(ctx, opts.TeamID)
	if err != nil {
		return nil, err
	}
	sets, err := p.d.source.PlayerShotDashboard(ctx, p.ID, teamID, nba.DashOptions{
		Season:         p.season(opts.Season),
		LastNGames:     opts.LastNGames,
		OpponentTeamID: opts.OpponentTeamID,
	})
	if err != nil {
		return nil, err
	}
	if idx >= len(sets) {
		return nil, fmt.Errorf("league: shot dashboard has %d result sets, want index %d", len(sets), idx)
	}
	return sets[idx], nil
}

func (p *Player) ShotsOverall(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashOverall, opts)
}

func (p *Player) ShotsPerType(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashGeneral, opts)
}

func (p *Player) ShotsPerShotClock(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashShotClock, opts)
}

func (p *Player) ShotsPerDribble(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashDribble, opts)
}

func (p *Player) ShotsPerDefenderDistance(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashClosestDefender, opts)
}

func (p *Player) ShotsPerTouchTime(ctx context.Context, opts PlayerDashOptions) (*table.Table, error) {
	return p.shotDashboard(ctx, dashTouchTime, opts)
}

func (p *Player) String() string {
	return fmt.Sprintf("Player(%s %s)", p.ID, p.Name)
}

func set(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			m[v] = struct{}{}
		}
	}
	return m
}
