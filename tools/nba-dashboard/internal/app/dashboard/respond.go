package dashboard

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/tyler180/nba-stats-backends/internal/cache"
	"github.com/tyler180/nba-stats-backends/internal/league"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

type errorBody struct {
	Error string `json:"error"`
}

// tableBody is the wire form of a table: column names plus row-major cells.
type tableBody struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeTable(w http.ResponseWriter, t *table.Table) {
	body := tableBody{Columns: t.ColumnNames(), Rows: make([][]any, t.NumRows())}
	cols := t.Columns()
	for r := range body.Rows {
		row := make([]any, len(cols))
		for c, col := range cols {
			v := col.Values[r]
			// JSON has no NaN
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			row[c] = v
		}
		body.Rows[r] = row
	}
	writeJSON(w, http.StatusOK, body)
}

func statusFor(err error) int {
	var notFound *cache.NotFoundError
	var fetch *cache.FetchError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, league.ErrInvalidArgument),
		errors.Is(err, league.ErrUnknownBoxScore),
		errors.Is(err, cache.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.As(err, &fetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("dashboard: request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.log.Debug("dashboard: request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
