package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/league"
	"github.com/tyler180/nba-stats-backends/internal/league/leaguetest"
	"github.com/tyler180/nba-stats-backends/internal/logger"
	"github.com/tyler180/nba-stats-backends/internal/store"
)

func newTestServer(t *testing.T, src *leaguetest.Source) *httptest.Server {
	t.Helper()
	fs, err := store.NewFileStore(store.FileStoreConfig{Logger: logger.NewTestLogger(), Root: t.TempDir()})
	require.NoError(t, err)
	c, err := cache.New(cache.Config{Logger: logger.NewTestLogger(), Store: fs, DedupeFetches: true})
	require.NoError(t, err)
	d, err := league.NewDatasets(league.DatasetsConfig{Logger: logger.NewTestLogger(), Cache: c, Source: src, Season: "2019-20"})
	require.NoError(t, err)
	s, err := NewServer(Config{Logger: logger.NewTestLogger(), Datasets: d})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, tableBody) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body tableBody
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestTeams(t *testing.T) {
	src := &leaguetest.Source{}
	ts := newTestServer(t, src)

	status, body := get(t, ts, "/api/teams")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Rows, 30)
	assert.Equal(t, "id", body.Columns[0])

	get(t, ts, "/api/teams")
	assert.Equal(t, 1, src.Calls("teams"))
}

func TestPlayers_ActiveAndSearch(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{})

	_, all := get(t, ts, "/api/players")
	assert.Len(t, all.Rows, 3)

	_, active := get(t, ts, "/api/players?active=1")
	assert.Len(t, active.Rows, 2)

	_, found := get(t, ts, "/api/players?active=1&q=TATUM")
	require.Len(t, found.Rows, 1)
	assert.Equal(t, "Jayson Tatum", found.Rows[0][1])
}

func TestCareer(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{})

	status, body := get(t, ts, "/api/players/jayson%20tatum/career?season=2019-20")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Rows, 2)

	_, body = get(t, ts, "/api/players/Jayson%20Tatum/career?season=2018-19,2019-20&team=BOS")
	assert.Len(t, body.Rows, 2)

	status, _ = get(t, ts, "/api/players/Nobody/career")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, ts, "/api/players/Jayson%20Tatum/career?team=XYZ")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTeamSeason(t *testing.T) {
	src := &leaguetest.Source{Games: 4}
	ts := newTestServer(t, src)

	status, body := get(t, ts, "/api/teams/BOS/seasons/2019-20")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Rows, 4)
	// oldest game first
	assert.Equal(t, "NOV 01, 2019", body.Rows[0][2])

	get(t, ts, "/api/teams/1610612738/seasons/2019-20")
	assert.Equal(t, 1, src.Calls("gamelog"))

	get(t, ts, "/api/teams/1610612738/seasons/2019-20?invalidate=1")
	assert.Equal(t, 2, src.Calls("gamelog"))
}

func TestLastGames(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{Games: 8})

	status, body := get(t, ts, "/api/teams/BOS/last/3")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Rows, 3)
	assert.Equal(t, "NOV 08, 2019", body.Rows[2][2])

	status, _ = get(t, ts, "/api/teams/BOS/last/abc")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = get(t, ts, "/api/teams/BOS/last/-1")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = get(t, ts, "/api/teams/ZZZ/last/3")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBoxScore(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{})

	status, body := get(t, ts, "/api/games/0021900001/boxscore/Four-Factors")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"0021900001", "four-factors"}, body.Rows[0])

	status, _ = get(t, ts, "/api/games/0021900001/boxscore/hustle")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoster(t *testing.T) {
	src := &leaguetest.Source{}
	ts := newTestServer(t, src)
	status, _ := get(t, ts, "/api/teams/LAL/roster")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, src.Calls("roster"))
}

func TestFetchErrorIsBadGateway(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{LogErr: errors.New("stats.nba.com: 503")})
	resp, err := http.Get(ts.URL + "/api/teams/BOS/seasons/2019-20")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "503")
}

func TestMetricsAndCORS(t *testing.T) {
	ts := newTestServer(t, &leaguetest.Source{})
	get(t, ts, "/api/teams")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `nba_dashboard_http_requests_total{route="/api/teams",status="200"}`)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrap: %w", &cache.NotFoundError{Kind: "team", ID: "x"})))
	assert.Equal(t, http.StatusBadRequest, statusFor(cache.ErrInvalidKey))
	assert.Equal(t, http.StatusBadGateway, statusFor(&cache.FetchError{Key: "teams", Err: errors.New("x")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}
