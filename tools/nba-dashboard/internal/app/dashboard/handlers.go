package dashboard

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tyler180/nba-stats-backends/internal/league"
)

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	t, err := s.d.Teams(r.Context(), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := s.d.Players(r.Context(), league.PlayerFilter{ActiveOnly: flag(q.Get("active"))}, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if needle := strings.ToLower(strings.TrimSpace(q.Get("q"))); needle != "" {
		t = t.Filter(func(row int) bool {
			name, _ := t.Value("full_name", row)
			n, _ := name.(string)
			return strings.Contains(strings.ToLower(n), needle)
		})
	}
	writeTable(w, t)
}

func (s *Server) handleCareer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := league.FindPlayer(ctx, s.d, chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := league.CareerFilter{Seasons: list(q["season"])}
	for _, team := range list(q["team"]) {
		tm, err := s.team(r, team)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.TeamIDs = append(filter.TeamIDs, tm.ID)
	}
	t, err := p.CareerStats(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

func (s *Server) handleTeamSeason(w http.ResponseWriter, r *http.Request) {
	tm, err := s.team(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := tm.Season(r.Context(), chi.URLParam(r, "season"), flag(r.URL.Query().Get("invalidate")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

func (s *Server) handleLastGames(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "n must be an integer"})
		return
	}
	tm, err := s.team(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := tm.LastGames(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	tm, err := s.team(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := tm.Roster(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

func (s *Server) handleBoxScore(w http.ResponseWriter, r *http.Request) {
	t, err := s.d.NewGame(chi.URLParam(r, "id")).BoxScore(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTable(w, t)
}

// team resolves a path segment holding a team id or abbreviation.
func (s *Server) team(r *http.Request, ref string) (*league.Team, error) {
	if _, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.d.TeamByID(r.Context(), ref)
	}
	return s.d.TeamByAbbreviation(r.Context(), ref)
}

func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// list accepts repeated and comma separated query values.
func list(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
