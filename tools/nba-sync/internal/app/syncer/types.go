package syncer

import "encoding/json"

const (
	ModeWarm        = "warm"
	ModeRefresh     = "refresh"
	ModeCatalog     = "catalog"
	ModeMaterialize = "materialize"
	ModePredict     = "predict"
)

// Event is the Lambda payload. The CLI builds the same value from flags.
type Event struct {
	Mode           string `json:"mode"`             // warm | refresh | catalog | materialize | predict
	Season         string `json:"season"`           // e.g. "2019-20"; configured season when empty
	TeamList       string `json:"team_list"`        // CSV of abbreviations or ids ("BOS,1610612747")
	TeamChunkTotal *int   `json:"team_chunk_total"` // split the league across invocations
	TeamChunkIndex *int   `json:"team_chunk_index"`
	LastN          int    `json:"last_n"` // window for materialize and predict
}

// Raw keeps the Lambda edge decoupled from the event type.
type Raw = json.RawMessage

type Result struct {
	Mode         string       `json:"mode"`
	Season       string       `json:"season"`
	Teams        int          `json:"teams"`
	Datasets     int          `json:"datasets"`
	Rows         int          `json:"rows"`
	Failed       []string     `json:"failed,omitempty"`
	Cataloged    int          `json:"cataloged,omitempty"`
	Materialized int64        `json:"materialized,omitempty"`
	Predictions  []Prediction `json:"predictions,omitempty"`
}

// Prediction is the baseline forecast of a team's next game.
type Prediction struct {
	TeamID  string  `json:"team_id"`
	Team    string  `json:"team"`
	Samples int     `json:"samples"`
	MAE     float64 `json:"mae"`
	Next    float64 `json:"next_pts"`
}
