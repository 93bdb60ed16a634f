// Package model predicts team scoring from recent game logs.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

const DefaultWindow = 10

var ErrShape = errors.New("model: invalid input shape")

// Baseline predicts the points a team scores as its mean over the previous N
// games.
type Baseline struct {
	N int
}

func NewBaseline(n int) Baseline {
	if n <= 0 {
		n = DefaultWindow
	}
	return Baseline{N: n}
}

// Predict returns one prediction per sequence. Every sequence must hold
// exactly N samples.
func (b Baseline) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, seq := range x {
		if len(seq) != b.N {
			return nil, fmt.Errorf("%w: sequence %d has %d samples, want %d", ErrShape, i, len(seq), b.N)
		}
		var sum float64
		for _, v := range seq {
			sum += v
		}
		out[i] = sum / float64(b.N)
	}
	return out, nil
}

// Score is the mean absolute error of yPred against yTrue.
func (b Baseline) Score(yTrue, yPred []float64) (float64, error) {
	return MeanAbsoluteError(yTrue, yPred)
}

func MeanAbsoluteError(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("%w: %d targets, %d predictions", ErrShape, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrShape)
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// Points reads the PTS column of a game log, skipping null cells.
func Points(log *table.Table) ([]float64, error) {
	c, ok := log.Column("PTS")
	if !ok {
		return nil, errors.New("model: game log has no PTS column")
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch x := v.(type) {
		case int64:
			out = append(out, float64(x))
		case float64:
			out = append(out, x)
		}
	}
	return out, nil
}

// Windows slides an n-game window over series. Each window is paired with the
// game that follows it.
func Windows(series []float64, n int) (x [][]float64, y []float64) {
	for i := 0; i+n < len(series); i++ {
		w := make([]float64, n)
		copy(w, series[i:i+n])
		x = append(x, w)
		y = append(y, series[i+n])
	}
	return x, y
}

// Evaluation is the outcome of backtesting a model on one game log.
type Evaluation struct {
	Samples int
	MAE     float64
	// Next is the prediction for the game after the last one played.
	Next float64
}

// Evaluate backtests b over log. It fails when log has no more than N games.
func (b Baseline) Evaluate(log *table.Table) (Evaluation, error) {
	pts, err := Points(log)
	if err != nil {
		return Evaluation{}, err
	}
	x, y := Windows(pts, b.N)
	if len(x) == 0 {
		return Evaluation{}, fmt.Errorf("%w: %d games, need more than %d", ErrShape, len(pts), b.N)
	}
	pred, err := b.Predict(x)
	if err != nil {
		return Evaluation{}, err
	}
	mae, err := b.Score(y, pred)
	if err != nil {
		return Evaluation{}, err
	}
	next, err := b.Predict([][]float64{pts[len(pts)-b.N:]})
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Samples: len(x), MAE: mae, Next: next[0]}, nil
}
