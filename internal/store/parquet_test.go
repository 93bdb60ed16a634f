package store

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

func gameLog() *table.Table {
	return table.MustNew(
		table.Column{Name: "TEAM_ID", Kind: table.Int, Values: []any{int64(1610612738), int64(1610612738), int64(1610612738)}},
		table.Column{Name: "GAME_DATE", Kind: table.String, Values: []any{"OCT 23, 2019", "OCT 25, 2019", nil}},
		table.Column{Name: "MATCHUP", Kind: table.String, Values: []any{"BOS @ PHI", "BOS vs. TOR", "BOS @ NYK"}},
		table.Column{Name: "FG_PCT", Kind: table.Float, Values: []any{0.36, math.NaN(), nil}},
		table.Column{Name: "W", Kind: table.Bool, Values: []any{false, true, nil}},
		table.Column{Name: "AST", Kind: table.Int, Values: []any{int64(19), nil, int64(22)}},
	)
}

func TestParquet_RoundTrip(t *testing.T) {
	in := gameLog()
	b, err := EncodeBytes(in)
	require.NoError(t, err)

	out, err := Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.Equal(t, in.ColumnNames(), out.ColumnNames())
	require.True(t, table.Equal(in, out))
}

func TestParquet_EmptyTable(t *testing.T) {
	in := table.MustNew(
		table.Column{Name: "PLAYER", Kind: table.String, Values: []any{}},
		table.Column{Name: "PTS", Kind: table.Float, Values: []any{}},
	)
	b, err := EncodeBytes(in)
	require.NoError(t, err)
	out, err := Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.Equal(t, 0, out.NumRows())
	require.True(t, table.Equal(in, out))
}

func TestParquet_ManyRows(t *testing.T) {
	n := readBatch*3 + 7
	ids := make([]any, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	in := table.MustNew(table.Column{Name: "ID", Kind: table.Int, Values: ids})
	b, err := EncodeBytes(in)
	require.NoError(t, err)
	out, err := Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	require.True(t, table.Equal(in, out))
}

func TestParquet_RejectsNoColumns(t *testing.T) {
	_, err := EncodeBytes(table.MustNew())
	require.Error(t, err)
}

func TestParquet_Garbage(t *testing.T) {
	b := []byte("definitely not parquet")
	_, err := Decode(bytes.NewReader(b), int64(len(b)))
	require.Error(t, err)
}

func TestParquet_FlippedBytesNeverPanic(t *testing.T) {
	good, err := EncodeBytes(gameLog())
	require.NoError(t, err)

	b := make([]byte, len(good))
	for i := range good {
		copy(b, good)
		b[i] ^= 0xFF
		require.NotPanics(t, func() {
			_, _ = Decode(bytes.NewReader(b), int64(len(b)))
		}, "byte %d", i)
	}
}
