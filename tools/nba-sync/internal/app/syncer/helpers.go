package syncer

import (
	"strings"

	"github.com/tyler180/nba-stats-backends/internal/league"
)

// teamSubset narrows the league to the listed teams, or to one chunk of it
// when no list is given.
func teamSubset(all []*league.Team, teamListCSV string, chunkTotal, chunkIndex int) []*league.Team {
	if strings.TrimSpace(teamListCSV) != "" {
		want := map[string]struct{}{}
		for _, t := range strings.Split(teamListCSV, ",") {
			want[strings.ToUpper(strings.TrimSpace(t))] = struct{}{}
		}
		out := make([]*league.Team, 0, len(want))
		for _, tm := range all {
			_, byAbbr := want[tm.Abbreviation]
			_, byID := want[tm.ID]
			if byAbbr || byID {
				out = append(out, tm)
			}
		}
		return out
	}
	cp := append([]*league.Team(nil), all...)
	if chunkTotal <= 1 || chunkIndex < 0 || chunkIndex >= chunkTotal {
		return cp
	}
	n := len(cp)
	chunkSize := (n + chunkTotal - 1) / chunkTotal
	start := chunkIndex * chunkSize
	if start >= n {
		return nil
	}
	end := start + chunkSize
	if end > n {
		end = n
	}
	return cp[start:end]
}

func pickInt(ev *int, def int) int {
	if ev != nil {
		return *ev
	}
	return def
}
