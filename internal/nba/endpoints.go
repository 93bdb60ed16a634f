package nba

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

const (
	leagueID          = "00"
	seasonTypeRegular = "Regular Season"

	// GameDateLayout is the GAME_DATE format of team game logs ("OCT 22, 2019").
	GameDateLayout = "Jan 02, 2006"
)

// DashOptions narrows the tracking dashboards.
type DashOptions struct {
	Season         string
	SeasonType     string
	LastNGames     int
	OpponentTeamID string
}

// ShotChartOptions selects a player's shot-chart rows.
type ShotChartOptions struct {
	PlayerID       string
	TeamID         string
	Season         string
	SeasonType     string
	LastNGames     int
	OpponentTeamID string
	// MadeOnly selects the PTS context; false selects every field goal attempt.
	MadeOnly bool
	GameID   string
}

// BoxScoreKind names one of the box-score endpoints.
type BoxScoreKind string

const (
	BoxTraditional BoxScoreKind = "traditional"
	BoxAdvanced    BoxScoreKind = "advanced"
	BoxFourFactors BoxScoreKind = "four-factors"
	BoxUsage       BoxScoreKind = "usage"
	BoxPlayerTrack BoxScoreKind = "player-track"
	BoxScoring     BoxScoreKind = "scoring"
	BoxDefensive   BoxScoreKind = "defensive"
	BoxMatchups    BoxScoreKind = "matchups"
	BoxMisc        BoxScoreKind = "misc"
)

var boxScoreEndpoints = map[BoxScoreKind]string{
	BoxTraditional: "boxscoretraditionalv2",
	BoxAdvanced:    "boxscoreadvancedv2",
	BoxFourFactors: "boxscorefourfactorsv2",
	BoxUsage:       "boxscoreusagev2",
	BoxPlayerTrack: "boxscoreplayertrackv2",
	BoxScoring:     "boxscorescoringv2",
	BoxDefensive:   "boxscoredefensive",
	BoxMatchups:    "boxscorematchups",
	BoxMisc:        "boxscoremiscv2",
}

var ErrUnknownBoxScore = errors.New("nba: unknown box score kind")

// BoxScoreKinds lists the supported kinds in a stable order.
func BoxScoreKinds() []BoxScoreKind {
	out := make([]BoxScoreKind, 0, len(boxScoreEndpoints))
	for k := range boxScoreEndpoints {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PlayerDirectory returns every player known to the league with columns id,
// full_name, first_name, last_name, is_active, team_id, from_year, to_year.
func (c *Client) PlayerDirectory(ctx context.Context, season string) (*table.Table, error) {
	resp, err := c.Get(ctx, "commonallplayers", url.Values{
		"LeagueID":            {leagueID},
		"Season":              {season},
		"IsOnlyCurrentSeason": {"0"},
	})
	if err != nil {
		return nil, err
	}
	raw, err := resp.Set(0)
	if err != nil {
		return nil, err
	}
	return playerDirectory(raw)
}

func playerDirectory(raw *table.Table) (*table.Table, error) {
	n := raw.NumRows()
	cols := []table.Column{
		{Name: "id", Kind: table.Int, Values: make([]any, n)},
		{Name: "full_name", Kind: table.String, Values: make([]any, n)},
		{Name: "first_name", Kind: table.String, Values: make([]any, n)},
		{Name: "last_name", Kind: table.String, Values: make([]any, n)},
		{Name: "is_active", Kind: table.Bool, Values: make([]any, n)},
		{Name: "team_id", Kind: table.Int, Values: make([]any, n)},
		{Name: "from_year", Kind: table.Int, Values: make([]any, n)},
		{Name: "to_year", Kind: table.Int, Values: make([]any, n)},
	}
	for r := 0; r < n; r++ {
		cols[0].Values[r] = intCell(raw, "PERSON_ID", r)
		full, _ := strCell(raw, "DISPLAY_FIRST_LAST", r).(string)
		lcf, _ := strCell(raw, "DISPLAY_LAST_COMMA_FIRST", r).(string)
		first, last := splitLastCommaFirst(lcf, full)
		cols[1].Values[r] = nullable(full)
		cols[2].Values[r] = nullable(first)
		cols[3].Values[r] = nullable(last)
		cols[4].Values[r] = intCell(raw, "ROSTERSTATUS", r) == int64(1)
		if id, ok := intCell(raw, "TEAM_ID", r).(int64); ok && id != 0 {
			cols[5].Values[r] = id
		}
		cols[6].Values[r] = intCell(raw, "FROM_YEAR", r)
		cols[7].Values[r] = intCell(raw, "TO_YEAR", r)
	}
	return table.New(cols...)
}

func splitLastCommaFirst(lcf, full string) (string, string) {
	if last, first, ok := strings.Cut(lcf, ", "); ok {
		return first, last
	}
	if first, last, ok := strings.Cut(full, " "); ok {
		return first, last
	}
	return "", full
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// strCell reads a cell as a string, nil when absent or null.
func strCell(t *table.Table, col string, row int) any {
	v, _ := t.Value(col, row)
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// intCell reads a cell as an int64, accepting numeric strings.
func intCell(t *table.Table, col string, row int) any {
	v, _ := t.Value(col, row)
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	return nil
}

// TeamGameLog returns a team's regular-season game log, ascending by date.
func (c *Client) TeamGameLog(ctx context.Context, teamID, season string) (*table.Table, error) {
	resp, err := c.Get(ctx, "teamgamelog", url.Values{
		"TeamID":     {teamID},
		"Season":     {season},
		"SeasonType": {seasonTypeRegular},
		"LeagueID":   {leagueID},
		"DateFrom":   {""},
		"DateTo":     {""},
	})
	if err != nil {
		return nil, err
	}
	t, err := resp.Set(0)
	if err != nil {
		return nil, err
	}
	return SortGameLog(t), nil
}

// SortGameLog orders rows by GAME_DATE, oldest first. Rows whose date does
// not parse keep their relative order after the dated ones.
func SortGameLog(t *table.Table) *table.Table {
	if _, ok := t.Column("GAME_DATE"); !ok {
		return t
	}
	type dated struct {
		row int
		at  time.Time
		ok  bool
	}
	rows := make([]dated, t.NumRows())
	for r := range rows {
		rows[r].row = r
		if s, ok := strCell(t, "GAME_DATE", r).(string); ok {
			at, err := ParseGameDate(s)
			rows[r].at, rows[r].ok = at, err == nil
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.at.Before(b.at)
	})
	order := make([]int, len(rows))
	for i, d := range rows {
		order[i] = d.row
	}
	return t.Take(order)
}

// ParseGameDate accepts the game-log date format as well as ISO dates.
func ParseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{GameDateLayout, "Jan 2, 2006", "2006-01-02", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("nba: unrecognised game date %q", s)
}

func dashParams(teamID string, opts DashOptions) url.Values {
	st := opts.SeasonType
	if st == "" {
		st = seasonTypeRegular
	}
	opp := opts.OpponentTeamID
	if opp == "" {
		opp = "0"
	}
	return url.Values{
		"TeamID":         {teamID},
		"Season":         {opts.Season},
		"SeasonType":     {st},
		"LastNGames":     {strconv.Itoa(opts.LastNGames)},
		"LeagueID":       {leagueID},
		"PerMode":        {"Totals"},
		"Month":          {"0"},
		"OpponentTeamID": {opp},
		"Period":         {"0"},
		"DateFrom":       {""},
		"DateTo":         {""},
		"GameSegment":    {""},
		"Location":       {""},
		"Outcome":        {""},
		"SeasonSegment":  {""},
		"VsConference":   {""},
		"VsDivision":     {""},
	}
}

// teamDash fetches the first result set of a team tracking dashboard and
// drops the two leading identity columns.
func (c *Client) teamDash(ctx context.Context, endpoint, teamID string, opts DashOptions) (*table.Table, error) {
	resp, err := c.Get(ctx, endpoint, dashParams(teamID, opts))
	if err != nil {
		return nil, err
	}
	t, err := resp.Set(0)
	if err != nil {
		return nil, err
	}
	return t.DropLeading(2), nil
}

func (c *Client) TeamShots(ctx context.Context, teamID string, opts DashOptions) (*table.Table, error) {
	return c.teamDash(ctx, "teamdashptshots", teamID, opts)
}

func (c *Client) TeamPasses(ctx context.Context, teamID string, opts DashOptions) (*table.Table, error) {
	return c.teamDash(ctx, "teamdashptpass", teamID, opts)
}

func (c *Client) TeamRebounds(ctx context.Context, teamID string, opts DashOptions) (*table.Table, error) {
	return c.teamDash(ctx, "teamdashptreb", teamID, opts)
}

// TeamRoster returns the current roster (result set 0 of commonteamroster).
func (c *Client) TeamRoster(ctx context.Context, teamID, season string) (*table.Table, error) {
	resp, err := c.Get(ctx, "commonteamroster", url.Values{
		"TeamID":   {teamID},
		"Season":   {season},
		"LeagueID": {leagueID},
	})
	if err != nil {
		return nil, err
	}
	return resp.Set(0)
}

// PlayerCareerStats returns regular-season totals per season.
func (c *Client) PlayerCareerStats(ctx context.Context, playerID string) (*table.Table, error) {
	resp, err := c.Get(ctx, "playercareerstats", url.Values{
		"PlayerID": {playerID},
		"PerMode":  {"Totals"},
		"LeagueID": {leagueID},
	})
	if err != nil {
		return nil, err
	}
	return resp.Set(0)
}

// PlayerProfile returns the regular-season totals set of playerprofilev2.
func (c *Client) PlayerProfile(ctx context.Context, playerID string) (*table.Table, error) {
	resp, err := c.Get(ctx, "playerprofilev2", url.Values{
		"PlayerID": {playerID},
		"PerMode":  {"Totals"},
		"LeagueID": {leagueID},
	})
	if err != nil {
		return nil, err
	}
	return resp.Set(0)
}

// PlayerShotDashboard returns every result set of playerdashptshots: overall,
// general (shot type), shot clock, dribbles, closest defender, closest
// defender 10ft+ and touch time.
func (c *Client) PlayerShotDashboard(ctx context.Context, playerID, teamID string, opts DashOptions) ([]*table.Table, error) {
	params := dashParams(teamID, opts)
	params.Set("PlayerID", playerID)
	resp, err := c.Get(ctx, "playerdashptshots", params)
	if err != nil {
		return nil, err
	}
	out := make([]*table.Table, len(resp.ResultSets))
	for i := range resp.ResultSets {
		t, err := resp.Set(i)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// ShotChartDetail returns individual shots, filtered to GameID when set.
func (c *Client) ShotChartDetail(ctx context.Context, opts ShotChartOptions) (*table.Table, error) {
	measure := "FGA"
	if opts.MadeOnly {
		measure = "PTS"
	}
	st := opts.SeasonType
	if st == "" {
		st = seasonTypeRegular
	}
	opp := opts.OpponentTeamID
	if opp == "" {
		opp = "0"
	}
	resp, err := c.Get(ctx, "shotchartdetail", url.Values{
		"PlayerID":       {opts.PlayerID},
		"TeamID":         {opts.TeamID},
		"Season":         {opts.Season},
		"SeasonType":     {st},
		"ContextMeasure": {measure},
		"LastNGames":     {strconv.Itoa(opts.LastNGames)},
		"OpponentTeamID": {opp},
		"GameID":         {opts.GameID},
		"LeagueID":       {leagueID},
		"Month":          {"0"},
		"Period":         {"0"},
		"PlayerPosition": {""},
		"DateFrom":       {""},
		"DateTo":         {""},
		"GameSegment":    {""},
		"Location":       {""},
		"Outcome":        {""},
		"RookieYear":     {""},
		"SeasonSegment":  {""},
		"VsConference":   {""},
		"VsDivision":     {""},
	})
	if err != nil {
		return nil, err
	}
	t, err := resp.Set(0)
	if err != nil {
		return nil, err
	}
	if opts.GameID == "" {
		return t, nil
	}
	return t.Filter(func(r int) bool {
		id, _ := strCell(t, "GAME_ID", r).(string)
		return id == opts.GameID
	}), nil
}

// BoxScore returns the player rows (result set 0) of the kind's endpoint.
func (c *Client) BoxScore(ctx context.Context, gameID string, kind BoxScoreKind) (*table.Table, error) {
	endpoint, ok := boxScoreEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoxScore, kind)
	}
	params := url.Values{"GameID": {gameID}}
	if kind != BoxDefensive && kind != BoxMatchups {
		params.Set("StartPeriod", "0")
		params.Set("EndPeriod", "10")
		params.Set("StartRange", "0")
		params.Set("EndRange", "28800")
		params.Set("RangeType", "0")
	}
	resp, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return resp.Set(0)
}
