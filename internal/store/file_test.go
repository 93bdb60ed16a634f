package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-stats-backends/internal/logger"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(FileStoreConfig{Logger: logger.NewTestLogger(), Root: filepath.Join(t.TempDir(), "nba_data")})
	require.NoError(t, err)
	return s
}

func TestFileStore_MissingKey(t *testing.T) {
	s := newFileStore(t)
	tb, found, err := s.Load(context.Background(), "players")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, tb)
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	in := gameLog()

	require.NoError(t, s.Save(ctx, "1610612738_2019-20", in))
	require.FileExists(t, filepath.Join(s.Root(), "1610612738_2019-20.parquet"))

	out, found, err := s.Load(ctx, "1610612738_2019-20")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, table.Equal(in, out))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	in := gameLog()
	require.NoError(t, s.Save(ctx, "log", in))

	shorter := in.Head(1)
	require.NoError(t, s.Save(ctx, "log", shorter))

	out, found, err := s.Load(ctx, "log")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, out.NumRows())
}

func TestFileStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	require.NoError(t, s.Save(ctx, "teams", gameLog()))

	path := s.Path("teams")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b[:len(b)/2], 0o644))

	_, found, err := s.Load(ctx, "teams")
	require.False(t, found)
	var serr *SerializationError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, "teams", serr.Key)
}

func TestFileStore_SaveFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	in := gameLog()
	require.NoError(t, s.Save(ctx, "teams", in))

	err := s.Save(ctx, "teams", table.MustNew())
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)

	out, found, err := s.Load(ctx, "teams")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, table.Equal(in, out))
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	s := newFileStore(t)
	_, _, err := s.Load(context.Background(), "../etc")
	require.Error(t, err)
	require.Error(t, s.Save(context.Background(), "a/b", gameLog()))
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := NewFileStore(FileStoreConfig{Root: "x"})
	require.Error(t, err)
	_, err = NewFileStore(FileStoreConfig{Logger: logger.NewTestLogger()})
	require.Error(t, err)
}
