package league

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

type Team struct {
	ID           string
	Abbreviation string
	FullName     string

	d      *Datasets
	mu     sync.Mutex
	roster *table.Table
}

// DashOptions narrows the team tracking dashboards. An empty Season means
// the current one.
type DashOptions struct {
	Season     string
	LastNGames int
}

// NewTeam binds a team to the datasets.
func (d *Datasets) NewTeam(id, abbreviation, fullName string) *Team {
	return &Team{ID: id, Abbreviation: abbreviation, FullName: fullName, d: d}
}

// TeamList builds a Team for every row of the team directory.
func (d *Datasets) TeamList(ctx context.Context) ([]*Team, error) {
	dir, err := d.Teams(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]*Team, 0, dir.NumRows())
	for r := 0; r < dir.NumRows(); r++ {
		out = append(out, d.teamFromRow(dir, r))
	}
	return out, nil
}

// TeamByAbbreviation finds a team in the directory, case-insensitively.
func (d *Datasets) TeamByAbbreviation(ctx context.Context, abbr string) (*Team, error) {
	return d.findTeam(ctx, "abbreviation", abbr)
}

// TeamByID finds a team in the directory by its stats id.
func (d *Datasets) TeamByID(ctx context.Context, id string) (*Team, error) {
	return d.findTeam(ctx, "id", id)
}

func (d *Datasets) findTeam(ctx context.Context, col, want string) (*Team, error) {
	dir, err := d.Teams(ctx, false)
	if err != nil {
		return nil, err
	}
	for r := 0; r < dir.NumRows(); r++ {
		if strings.EqualFold(cellString(dir, col, r), strings.TrimSpace(want)) {
			return d.teamFromRow(dir, r), nil
		}
	}
	return nil, &cache.NotFoundError{Kind: "team", ID: want}
}

func (d *Datasets) teamFromRow(dir *table.Table, r int) *Team {
	return d.NewTeam(cellString(dir, "id", r), cellString(dir, "abbreviation", r), cellString(dir, "full_name", r))
}

// Season returns the team's game log for season through the cache.
func (t *Team) Season(ctx context.Context, season string, invalidate bool) (*table.Table, error) {
	if season == "" {
		season = t.d.season
	}
	return t.d.TeamSeason(ctx, t.ID, season, invalidate)
}

// LastGames refreshes the current season and returns its final n games.
// n == 0, or n at least the number of games played, returns the whole log.
func (t *Team) LastGames(ctx context.Context, n int) (*table.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: last games count %d is negative", ErrInvalidArgument, n)
	}
	log, err := t.Season(ctx, t.d.season, true)
	if err != nil {
		return nil, err
	}
	return log.Tail(n), nil
}

func (t *Team) dashOptions(opts DashOptions) nba.DashOptions {
	season := opts.Season
	if season == "" {
		season = t.d.season
	}
	return nba.DashOptions{Season: season, LastNGames: opts.LastNGames}
}

// Shots returns the team's shooting dashboard. Dashboards are not cached.
func (t *Team) Shots(ctx context.Context, opts DashOptions) (*table.Table, error) {
	return t.d.source.TeamShots(ctx, t.ID, t.dashOptions(opts))
}

// Passes returns passes made per player.
func (t *Team) Passes(ctx context.Context, opts DashOptions) (*table.Table, error) {
	return t.d.source.TeamPasses(ctx, t.ID, t.dashOptions(opts))
}

// Rebounds returns the team's rebounding dashboard.
func (t *Team) Rebounds(ctx context.Context, opts DashOptions) (*table.Table, error) {
	return t.d.source.TeamRebounds(ctx, t.ID, t.dashOptions(opts))
}

// Roster is fetched on first use and kept for the life of the Team. A failed
// fetch is not remembered.
func (t *Team) Roster(ctx context.Context) (*table.Table, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roster != nil {
		return t.roster, nil
	}
	r, err := t.d.source.TeamRoster(ctx, t.ID, t.d.season)
	if err != nil {
		return nil, err
	}
	t.roster = r
	return r, nil
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(%s %s)", t.ID, t.FullName)
}

// cellString renders a cell as text; ints print without a decimal point.
func cellString(t *table.Table, col string, r int) string {
	v, _ := t.Value(col, r)
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
