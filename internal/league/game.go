package league

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

var ErrUnknownBoxScore = nba.ErrUnknownBoxScore

type Game struct {
	ID string

	d *Datasets
}

func (d *Datasets) NewGame(id string) *Game {
	return &Game{ID: id, d: d}
}

// ParseBoxScoreKind accepts a kind name such as "four-factors", ignoring case.
func ParseBoxScoreKind(s string) (nba.BoxScoreKind, error) {
	want := nba.BoxScoreKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range nba.BoxScoreKinds() {
		if k == want {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBoxScore, s)
}

// BoxScore returns the player box score of the given kind. Box scores are
// not cached.
func (g *Game) BoxScore(ctx context.Context, kind string) (*table.Table, error) {
	k, err := ParseBoxScoreKind(kind)
	if err != nil {
		return nil, err
	}
	if g.ID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidArgument)
	}
	return g.d.source.BoxScore(ctx, g.ID, k)
}
