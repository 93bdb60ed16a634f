// Package bref reads team game logs from basketball-reference.com. It backs
// up the stats API when that is unavailable.
package bref

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tyler180/nba-stats-backends/internal/nba"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

const (
	DefaultBaseURL = "https://www.basketball-reference.com"

	ua = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
)

var (
	wsRe     = regexp.MustCompile(`\s+`)
	seasonRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

type ClientConfig struct {
	Logger      *slog.Logger
	HTTPClient  *http.Client
	BaseURL     string
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

func (cfg *ClientConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 4
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 8 * time.Second
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg ClientConfig
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bref: invalid config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{log: cfg.Logger, cfg: cfg}, nil
}

// SeasonEndYear maps "2019-20" to 2020, the year basketball-reference files
// the season under.
func SeasonEndYear(season string) (int, error) {
	m := seasonRe.FindStringSubmatch(strings.TrimSpace(season))
	if m == nil {
		return 0, fmt.Errorf("bref: season %q is not YYYY-YY", season)
	}
	start, _ := strconv.Atoi(m[1])
	return start + 1, nil
}

// TeamGameLog fetches and parses the season schedule page of a team. Games
// not yet played are skipped.
func (c *Client) TeamGameLog(ctx context.Context, teamID, season string) (*table.Table, error) {
	id, err := strconv.ParseInt(teamID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bref: team id %q: %w", teamID, err)
	}
	f, ok := nba.FranchiseByID(id)
	if !ok {
		return nil, fmt.Errorf("bref: unknown team id %s", teamID)
	}
	year, err := SeasonEndYear(season)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/teams/%s/%d_games.html", c.cfg.BaseURL, f.Bref(), year)
	html, err := c.getText(ctx, url)
	if err != nil {
		return nil, err
	}
	t, err := ParseGameLog(strings.NewReader(html), f.Abbreviation)
	if err != nil {
		return nil, err
	}
	c.log.Info("bref: parsed game log", "team", f.Abbreviation, "season", season, "games", t.NumRows())
	return t, nil
}

// ParseGameLog reads table#games of a schedule page into columns
// TEAM_ABBREVIATION, GAME_DATE, MATCHUP, WL, PTS and OPP_PTS, with dates in
// the stats API format and rows ascending by date.
func ParseGameLog(r io.Reader, teamAbbr string) (*table.Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// basketball-reference ships some tables inside HTML comments
	clean := strings.ReplaceAll(string(b), "<!--", "")
	clean = strings.ReplaceAll(clean, "-->", "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, err
	}
	games := doc.Find("table#games").First()
	if games.Length() == 0 {
		return nil, errors.New("bref: games table not found")
	}

	var teams, dates, matchups, results, pts, oppPts []any
	games.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if strings.Contains(tr.AttrOr("class", ""), "thead") {
			return
		}
		cell := func(stat string) string {
			sel := tr.Find(fmt.Sprintf(`th[data-stat="%s"], td[data-stat="%s"]`, stat, stat)).First()
			return wsRe.ReplaceAllString(strings.TrimSpace(sel.Text()), " ")
		}
		score, err := strconv.ParseInt(cell("pts"), 10, 64)
		if err != nil {
			return
		}
		date, ok := statsDate(cell("date_game"))
		if !ok {
			return
		}
		opp := cell("opp_name")
		oppAbbr := opp
		if f, ok := nba.FranchiseByName(opp); ok {
			oppAbbr = f.Abbreviation
		}
		sep := " vs. "
		if cell("game_location") == "@" {
			sep = " @ "
		}

		teams = append(teams, teamAbbr)
		dates = append(dates, date)
		matchups = append(matchups, teamAbbr+sep+oppAbbr)
		results = append(results, nullable(cell("game_result")))
		pts = append(pts, score)
		if n, err := strconv.ParseInt(cell("opp_pts"), 10, 64); err == nil {
			oppPts = append(oppPts, n)
		} else {
			oppPts = append(oppPts, nil)
		}
	})

	t, err := table.New(
		table.Column{Name: "TEAM_ABBREVIATION", Kind: table.String, Values: orEmpty(teams)},
		table.Column{Name: "GAME_DATE", Kind: table.String, Values: orEmpty(dates)},
		table.Column{Name: "MATCHUP", Kind: table.String, Values: orEmpty(matchups)},
		table.Column{Name: "WL", Kind: table.String, Values: orEmpty(results)},
		table.Column{Name: "PTS", Kind: table.Int, Values: orEmpty(pts)},
		table.Column{Name: "OPP_PTS", Kind: table.Int, Values: orEmpty(oppPts)},
	)
	if err != nil {
		return nil, err
	}
	return nba.SortGameLog(t), nil
}

// statsDate turns "Tue, Oct 22, 2019" into "OCT 22, 2019".
func statsDate(s string) (string, bool) {
	if _, rest, ok := strings.Cut(s, ", "); ok && len(rest) > 0 && rest[0] >= 'A' && rest[0] <= 'Z' {
		s = rest
	}
	t, err := time.Parse("Jan 2, 2006", s)
	if err != nil {
		return "", false
	}
	return strings.ToUpper(t.Format(nba.GameDateLayout)), true
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmpty(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

func (c *Client) getText(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", ua)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
		} else {
			b, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusOK && rerr == nil:
				return string(b), nil
			case resp.StatusCode == http.StatusOK:
				lastErr = rerr
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("bref: status %d for %s", resp.StatusCode, url)
			default:
				return "", fmt.Errorf("bref: status %d for %s (body len=%d)", resp.StatusCode, url, len(b))
			}
		}
		c.log.Debug("bref: request failed", "url", url, "attempt", attempt+1, "error", lastErr)

		wait := c.cfg.RetryBase * time.Duration(1<<attempt)
		wait += time.Duration(rand.Int63n(int64(c.cfg.RetryBase)/2 + 1))
		if wait > c.cfg.RetryMax {
			wait = c.cfg.RetryMax
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("bref: exhausted retries for %s: %w", url, lastErr)
}
