package nba

import (
	"context"
	"strings"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

type Franchise struct {
	ID           int64
	Abbreviation string
	FullName     string
	Nickname     string
	City         string
	State        string
	YearFounded  int64
	// BrefCode is the basketball-reference team code when it differs from
	// the stats abbreviation.
	BrefCode string
}

// franchises is the static directory of the 30 active NBA teams.
var franchises = []Franchise{
	{1610612737, "ATL", "Atlanta Hawks", "Hawks", "Atlanta", "Georgia", 1949, ""},
	{1610612738, "BOS", "Boston Celtics", "Celtics", "Boston", "Massachusetts", 1946, ""},
	{1610612739, "CLE", "Cleveland Cavaliers", "Cavaliers", "Cleveland", "Ohio", 1970, ""},
	{1610612740, "NOP", "New Orleans Pelicans", "Pelicans", "New Orleans", "Louisiana", 2002, ""},
	{1610612741, "CHI", "Chicago Bulls", "Bulls", "Chicago", "Illinois", 1966, ""},
	{1610612742, "DAL", "Dallas Mavericks", "Mavericks", "Dallas", "Texas", 1980, ""},
	{1610612743, "DEN", "Denver Nuggets", "Nuggets", "Denver", "Colorado", 1976, ""},
	{1610612744, "GSW", "Golden State Warriors", "Warriors", "Golden State", "California", 1946, ""},
	{1610612745, "HOU", "Houston Rockets", "Rockets", "Houston", "Texas", 1967, ""},
	{1610612746, "LAC", "Los Angeles Clippers", "Clippers", "Los Angeles", "California", 1970, ""},
	{1610612747, "LAL", "Los Angeles Lakers", "Lakers", "Los Angeles", "California", 1948, ""},
	{1610612748, "MIA", "Miami Heat", "Heat", "Miami", "Florida", 1988, ""},
	{1610612749, "MIL", "Milwaukee Bucks", "Bucks", "Milwaukee", "Wisconsin", 1968, ""},
	{1610612750, "MIN", "Minnesota Timberwolves", "Timberwolves", "Minnesota", "Minnesota", 1989, ""},
	{1610612751, "BKN", "Brooklyn Nets", "Nets", "Brooklyn", "New York", 1976, "BRK"},
	{1610612752, "NYK", "New York Knicks", "Knicks", "New York", "New York", 1946, ""},
	{1610612753, "ORL", "Orlando Magic", "Magic", "Orlando", "Florida", 1989, ""},
	{1610612754, "IND", "Indiana Pacers", "Pacers", "Indiana", "Indiana", 1976, ""},
	{1610612755, "PHI", "Philadelphia 76ers", "76ers", "Philadelphia", "Pennsylvania", 1949, ""},
	{1610612756, "PHX", "Phoenix Suns", "Suns", "Phoenix", "Arizona", 1968, "PHO"},
	{1610612757, "POR", "Portland Trail Blazers", "Trail Blazers", "Portland", "Oregon", 1970, ""},
	{1610612758, "SAC", "Sacramento Kings", "Kings", "Sacramento", "California", 1948, ""},
	{1610612759, "SAS", "San Antonio Spurs", "Spurs", "San Antonio", "Texas", 1976, ""},
	{1610612760, "OKC", "Oklahoma City Thunder", "Thunder", "Oklahoma City", "Oklahoma", 1967, ""},
	{1610612761, "TOR", "Toronto Raptors", "Raptors", "Toronto", "Ontario", 1995, ""},
	{1610612762, "UTA", "Utah Jazz", "Jazz", "Utah", "Utah", 1974, ""},
	{1610612763, "MEM", "Memphis Grizzlies", "Grizzlies", "Memphis", "Tennessee", 1995, ""},
	{1610612764, "WAS", "Washington Wizards", "Wizards", "Washington", "District of Columbia", 1961, ""},
	{1610612765, "DET", "Detroit Pistons", "Pistons", "Detroit", "Michigan", 1948, ""},
	{1610612766, "CHA", "Charlotte Hornets", "Hornets", "Charlotte", "North Carolina", 1988, "CHO"},
}

// Franchises returns a copy of the static team directory.
func Franchises() []Franchise {
	out := make([]Franchise, len(franchises))
	copy(out, franchises)
	return out
}

// FranchiseByID looks a team up by its stats id.
func FranchiseByID(id int64) (Franchise, bool) {
	for _, f := range franchises {
		if f.ID == id {
			return f, true
		}
	}
	return Franchise{}, false
}

// FranchiseByAbbreviation matches the stats abbreviation, case-insensitively.
func FranchiseByAbbreviation(abbr string) (Franchise, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	for _, f := range franchises {
		if f.Abbreviation == abbr {
			return f, true
		}
	}
	return Franchise{}, false
}

// FranchiseByName matches the full team name, case-insensitively.
func FranchiseByName(name string) (Franchise, bool) {
	name = strings.TrimSpace(name)
	for _, f := range franchises {
		if strings.EqualFold(f.FullName, name) {
			return f, true
		}
	}
	return Franchise{}, false
}

// Bref returns the basketball-reference code for the team.
func (f Franchise) Bref() string {
	if f.BrefCode != "" {
		return f.BrefCode
	}
	return f.Abbreviation
}

// TeamDirectory returns the team directory table. It needs no network.
func (c *Client) TeamDirectory(ctx context.Context) (*table.Table, error) {
	return TeamTable(), nil
}

// TeamTable renders the static directory with columns id, abbreviation,
// full_name, nickname, city, state and year_founded.
func TeamTable() *table.Table {
	n := len(franchises)
	cols := []table.Column{
		{Name: "id", Kind: table.Int, Values: make([]any, n)},
		{Name: "abbreviation", Kind: table.String, Values: make([]any, n)},
		{Name: "full_name", Kind: table.String, Values: make([]any, n)},
		{Name: "nickname", Kind: table.String, Values: make([]any, n)},
		{Name: "city", Kind: table.String, Values: make([]any, n)},
		{Name: "state", Kind: table.String, Values: make([]any, n)},
		{Name: "year_founded", Kind: table.Int, Values: make([]any, n)},
	}
	for i, f := range franchises {
		cols[0].Values[i] = f.ID
		cols[1].Values[i] = f.Abbreviation
		cols[2].Values[i] = f.FullName
		cols[3].Values[i] = f.Nickname
		cols[4].Values[i] = f.City
		cols[5].Values[i] = f.State
		cols[6].Values[i] = f.YearFounded
	}
	return table.MustNew(cols...)
}
