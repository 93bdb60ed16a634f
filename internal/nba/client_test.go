package nba

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-stats-backends/internal/logger"
)

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

func writeSets(t *testing.T, w http.ResponseWriter, resource string, sets ...resultSet) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"resource":   resource,
		"resultSets": sets,
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Logger:      logger.NewTestLogger(),
		BaseURL:     srv.URL + "/stats",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
		RetryMax:    5 * time.Millisecond,
		Cooldown:    time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestClient_HeadersAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats/commonteamroster", r.URL.Path)
		assert.Equal(t, "https://www.nba.com/", r.Header.Get("Referer"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		assert.Equal(t, "1610612738", r.URL.Query().Get("TeamID"))
		writeSets(t, w, "commonteamroster", resultSet{
			Name:    "CommonTeamRoster",
			Headers: []string{"TeamID", "PLAYER", "NUM", "PLAYER_ID"},
			RowSet: [][]any{
				{1610612738, "Jayson Tatum", "0", 1628369},
				{1610612738, "Kemba Walker", "8", 202689},
			},
		})
	}))
	defer srv.Close()

	roster, err := newTestClient(t, srv).TeamRoster(context.Background(), "1610612738", "2019-20")
	require.NoError(t, err)
	assert.Equal(t, 2, roster.NumRows())
	v, _ := roster.Value("PLAYER_ID", 0)
	assert.Equal(t, int64(1628369), v)
	v, _ = roster.Value("NUM", 1)
	assert.Equal(t, "8", v)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			writeSets(t, w, "playercareerstats", resultSet{
				Name:    "SeasonTotalsRegularSeason",
				Headers: []string{"SEASON_ID", "TEAM_ID", "PTS"},
				RowSet:  [][]any{{"2019-20", 1610612738, 1543}},
			})
		}
	}))
	defer srv.Close()

	career, err := newTestClient(t, srv).PlayerCareerStats(context.Background(), "1628369")
	require.NoError(t, err)
	assert.Equal(t, 1, career.NumRows())
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).PlayerProfile(context.Background(), "1")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_FinalAttemptReturnsWithoutSleeping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{
		Logger:      logger.NewTestLogger(),
		BaseURL:     srv.URL + "/stats",
		MaxAttempts: 1,
		RetryBase:   time.Hour,
		RetryMax:    time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.PlayerProfile(ctx, "1")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.Status)
	assert.NoError(t, ctx.Err())
}

func TestClient_RetryAfterZeroSkipsCooldown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeSets(t, w, "playerprofilev2", resultSet{
			Name:    "SeasonTotalsRegularSeason",
			Headers: []string{"SEASON_ID", "PTS"},
			RowSet:  [][]any{{"2019-20", 1543}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{
		Logger:      logger.NewTestLogger(),
		BaseURL:     srv.URL + "/stats",
		MaxAttempts: 2,
		Cooldown:    time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Get(ctx, "playerprofilev2", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).TeamGameLog(context.Background(), "x", "2019-20")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv).TeamGameLog(ctx, "1610612738", "2019-20")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestTeamGameLog_SortedAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Regular Season", r.URL.Query().Get("SeasonType"))
		writeSets(t, w, "teamgamelog", resultSet{
			Name:    "TeamGameLog",
			Headers: []string{"Team_ID", "Game_ID", "GAME_DATE", "MATCHUP", "WL", "PTS"},
			RowSet: [][]any{
				{1610612738, "0021900030", "OCT 25, 2019", "BOS vs. TOR", "W", 112},
				{1610612738, "0021900002", "OCT 23, 2019", "BOS @ PHI", "L", 93},
				{1610612738, "0021900061", "NOV 01, 2019", "BOS vs. CLE", "W", 119},
			},
		})
	}))
	defer srv.Close()

	log, err := newTestClient(t, srv).TeamGameLog(context.Background(), "1610612738", "2019-20")
	require.NoError(t, err)
	require.Equal(t, 3, log.NumRows())
	var dates []any
	for r := 0; r < log.NumRows(); r++ {
		v, _ := log.Value("GAME_DATE", r)
		dates = append(dates, v)
	}
	assert.Equal(t, []any{"OCT 23, 2019", "OCT 25, 2019", "NOV 01, 2019"}, dates)
}

func TestTeamDash_DropsIdentityColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("LastNGames"))
		writeSets(t, w, "teamdashptpass", resultSet{
			Name:    "PassesMade",
			Headers: []string{"TEAM_ID", "TEAM_NAME", "PASS_TO", "PASS", "AST"},
			RowSet:  [][]any{{1610612738, "Boston Celtics", "Tatum, Jayson", 210, 31}},
		})
	}))
	defer srv.Close()

	passes, err := newTestClient(t, srv).TeamPasses(context.Background(), "1610612738", DashOptions{Season: "2019-20", LastNGames: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"PASS_TO", "PASS", "AST"}, passes.ColumnNames())
}

func TestPlayerDirectory_Mapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSets(t, w, "commonallplayers", resultSet{
			Name:    "CommonAllPlayers",
			Headers: []string{"PERSON_ID", "DISPLAY_LAST_COMMA_FIRST", "DISPLAY_FIRST_LAST", "ROSTERSTATUS", "FROM_YEAR", "TO_YEAR", "TEAM_ID"},
			RowSet: [][]any{
				{1628369, "Tatum, Jayson", "Jayson Tatum", 1, "2017", "2019", 1610612738},
				{76001, "Abdelnaby, Alaa", "Alaa Abdelnaby", 0, "1990", "1994", 0},
				{202689, nil, "Kemba Walker", 1, "2011", "2019", 1610612738},
			},
		})
	}))
	defer srv.Close()

	players, err := newTestClient(t, srv).PlayerDirectory(context.Background(), "2019-20")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "full_name", "first_name", "last_name", "is_active", "team_id", "from_year", "to_year"}, players.ColumnNames())

	v, _ := players.Value("is_active", 0)
	assert.Equal(t, true, v)
	v, _ = players.Value("is_active", 1)
	assert.Equal(t, false, v)
	v, _ = players.Value("first_name", 0)
	assert.Equal(t, "Jayson", v)
	v, _ = players.Value("team_id", 1)
	assert.Nil(t, v)
	v, _ = players.Value("from_year", 1)
	assert.Equal(t, int64(1990), v)

	v, _ = players.Value("full_name", 0)
	assert.Equal(t, "Jayson Tatum", v)
	v, _ = players.Value("last_name", 0)
	assert.Equal(t, "Tatum", v)
	// no "Last, First" form: split the display name
	v, _ = players.Value("first_name", 2)
	assert.Equal(t, "Kemba", v)
	v, _ = players.Value("last_name", 2)
	assert.Equal(t, "Walker", v)
}

func TestShotChartDetail_ContextAndGameFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PTS", r.URL.Query().Get("ContextMeasure"))
		writeSets(t, w, "shotchartdetail",
			resultSet{
				Name:    "Shot_Chart_Detail",
				Headers: []string{"GAME_ID", "LOC_X", "LOC_Y", "SHOT_MADE_FLAG"},
				RowSet: [][]any{
					{"0021900002", -12, 240, 1},
					{"0021900030", 5, 10, 1},
				},
			},
			resultSet{Name: "LeagueAverages", Headers: []string{"FGA"}, RowSet: [][]any{{1.0}}},
		)
	}))
	defer srv.Close()

	shots, err := newTestClient(t, srv).ShotChartDetail(context.Background(), ShotChartOptions{
		PlayerID: "1628369", TeamID: "1610612738", Season: "2019-20", MadeOnly: true, GameID: "0021900030",
	})
	require.NoError(t, err)
	require.Equal(t, 1, shots.NumRows())
	v, _ := shots.Value("LOC_X", 0)
	assert.Equal(t, int64(5), v)
}

func TestPlayerShotDashboard_AllSets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1628369", r.URL.Query().Get("PlayerID"))
		var sets []resultSet
		for _, name := range []string{"Overall", "GeneralShooting", "ShotClockShooting", "DribbleShooting", "ClosestDefenderShooting", "ClosestDefender10ftPlusShooting", "TouchTimeShooting"} {
			sets = append(sets, resultSet{Name: name, Headers: []string{"SHOT_TYPE", "FGA"}, RowSet: [][]any{{name, 10}}})
		}
		writeSets(t, w, "playerdashptshots", sets...)
	}))
	defer srv.Close()

	sets, err := newTestClient(t, srv).PlayerShotDashboard(context.Background(), "1628369", "1610612738", DashOptions{Season: "2019-20"})
	require.NoError(t, err)
	require.Len(t, sets, 7)
	v, _ := sets[6].Value("SHOT_TYPE", 0)
	assert.Equal(t, "TouchTimeShooting", v)
}

func TestBoxScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats/boxscorefourfactorsv2", r.URL.Path)
		assert.Equal(t, "0021900002", r.URL.Query().Get("GameID"))
		writeSets(t, w, "boxscore", resultSet{
			Name:    "sqlPlayersFourFactors",
			Headers: []string{"PLAYER_NAME", "EFG_PCT"},
			RowSet:  [][]any{{"Jayson Tatum", 0.5}, {"Kemba Walker", nil}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	box, err := c.BoxScore(context.Background(), "0021900002", BoxFourFactors)
	require.NoError(t, err)
	assert.Equal(t, 2, box.NumRows())

	_, err = c.BoxScore(context.Background(), "0021900002", BoxScoreKind("hustle"))
	require.ErrorIs(t, err, ErrUnknownBoxScore)
}

func TestTeamTable(t *testing.T) {
	tb := TeamTable()
	assert.Equal(t, 30, tb.NumRows())
	assert.Equal(t, []string{"id", "abbreviation", "full_name", "nickname", "city", "state", "year_founded"}, tb.ColumnNames())

	f, ok := FranchiseByAbbreviation("bkn")
	require.True(t, ok)
	assert.Equal(t, "BRK", f.Bref())
	_, ok = FranchiseByID(1)
	assert.False(t, ok)
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	d, ok = parseRetryAfter("0")
	assert.True(t, ok, "an explicit zero is a valid delay")
	assert.Equal(t, time.Duration(0), d)

	d, ok = parseRetryAfter(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), d)

	for _, h := range []string{"", "soon", "-4"} {
		_, ok = parseRetryAfter(h)
		assert.False(t, ok, h)
	}
}

func TestBackoffCapped(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		assert.LessOrEqual(t, backoff(attempt, 100*time.Millisecond, time.Second), time.Second)
	}
}
