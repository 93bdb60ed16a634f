// Package leaguetest provides a canned league.Source for tests of the tools
// built on the dataset layer.
package leaguetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

// Source answers every dataset from static tables and counts calls per
// endpoint. The zero value serves 12-game season logs.
type Source struct {
	// Games is the length of every team game log; 12 when zero.
	Games int
	// LogErr fails every game log fetch when set.
	LogErr error

	mu    sync.Mutex
	calls map[string]int
}

func (s *Source) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
}

// Calls returns how often endpoint was hit.
func (s *Source) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

func (s *Source) TeamDirectory(ctx context.Context) (*table.Table, error) {
	s.hit("teams")
	return nba.TeamTable(), nil
}

func (s *Source) PlayerDirectory(ctx context.Context, season string) (*table.Table, error) {
	s.hit("players")
	return table.New(
		table.Column{Name: "id", Kind: table.Int, Values: []any{int64(1628369), int64(76001), int64(202689)}},
		table.Column{Name: "full_name", Kind: table.String, Values: []any{"Jayson Tatum", "Alaa Abdelnaby", "Kemba Walker"}},
		table.Column{Name: "is_active", Kind: table.Bool, Values: []any{true, false, true}},
	)
}

// TeamGameLog serves games newest first, the order stats.nba.com uses. Points
// are 100 plus the day of the month.
func (s *Source) TeamGameLog(ctx context.Context, teamID, season string) (*table.Table, error) {
	s.hit("gamelog")
	if s.LogErr != nil {
		return nil, s.LogErr
	}
	n := s.Games
	if n == 0 {
		n = 12
	}
	return GameLog(teamID, n), nil
}

// GameLog builds an n-game log for teamID, newest first.
func GameLog(teamID string, n int) *table.Table {
	ids := make([]any, n)
	dates := make([]any, n)
	matchups := make([]any, n)
	wl := make([]any, n)
	pts := make([]any, n)
	for i := 0; i < n; i++ {
		day := n - i
		ids[i] = fmt.Sprintf("00219%05d", day)
		dates[i] = fmt.Sprintf("NOV %02d, 2019", day)
		matchups[i] = "BOS vs. LAL"
		if day%2 == 0 {
			wl[i] = "W"
		} else {
			wl[i] = "L"
		}
		pts[i] = int64(100 + day)
	}
	return table.MustNew(
		table.Column{Name: "Team_ID", Kind: table.String, Values: repeat(teamID, n)},
		table.Column{Name: "Game_ID", Kind: table.String, Values: ids},
		table.Column{Name: "GAME_DATE", Kind: table.String, Values: dates},
		table.Column{Name: "MATCHUP", Kind: table.String, Values: matchups},
		table.Column{Name: "WL", Kind: table.String, Values: wl},
		table.Column{Name: "PTS", Kind: table.Int, Values: pts},
	)
}

func repeat(v string, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func named(name string) *table.Table {
	return table.MustNew(table.Column{Name: "KIND", Kind: table.String, Values: []any{name}})
}

func (s *Source) TeamShots(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error) {
	s.hit("shots")
	return named("shots"), nil
}

func (s *Source) TeamPasses(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error) {
	s.hit("passes")
	return named("passes"), nil
}

func (s *Source) TeamRebounds(ctx context.Context, teamID string, opts nba.DashOptions) (*table.Table, error) {
	s.hit("rebounds")
	return named("rebounds"), nil
}

func (s *Source) TeamRoster(ctx context.Context, teamID, season string) (*table.Table, error) {
	s.hit("roster")
	return named("roster"), nil
}

func (s *Source) PlayerCareerStats(ctx context.Context, playerID string) (*table.Table, error) {
	s.hit("career")
	return table.MustNew(
		table.Column{Name: "SEASON_ID", Kind: table.String, Values: []any{"2017-18", "2018-19", "2019-20", "2019-20"}},
		table.Column{Name: "TEAM_ID", Kind: table.Int, Values: []any{int64(1610612738), int64(1610612738), int64(1610612738), int64(1610612747)}},
		table.Column{Name: "PTS", Kind: table.Int, Values: []any{int64(1112), int64(1285), int64(1543), int64(10)}},
	), nil
}

func (s *Source) PlayerProfile(ctx context.Context, playerID string) (*table.Table, error) {
	s.hit("profile")
	return table.MustNew(
		table.Column{Name: "SEASON_ID", Kind: table.String, Values: []any{"2018-19", "2019-20"}},
		table.Column{Name: "TEAM_ABBREVIATION", Kind: table.String, Values: []any{"BOS", "BOS"}},
	), nil
}

func (s *Source) PlayerShotDashboard(ctx context.Context, playerID, teamID string, opts nba.DashOptions) ([]*table.Table, error) {
	s.hit("playerdash")
	out := make([]*table.Table, 7)
	for i := range out {
		out[i] = named(fmt.Sprintf("set%d", i))
	}
	return out, nil
}

func (s *Source) ShotChartDetail(ctx context.Context, opts nba.ShotChartOptions) (*table.Table, error) {
	s.hit("shotchart")
	return named("shotchart"), nil
}

func (s *Source) BoxScore(ctx context.Context, gameID string, kind nba.BoxScoreKind) (*table.Table, error) {
	s.hit("box:" + string(kind))
	return table.MustNew(
		table.Column{Name: "GAME_ID", Kind: table.String, Values: []any{gameID}},
		table.Column{Name: "KIND", Kind: table.String, Values: []any{string(kind)}},
	), nil
}
