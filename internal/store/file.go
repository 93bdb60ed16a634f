package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

type FileStoreConfig struct {
	Logger *slog.Logger
	Root   string
}

func (cfg *FileStoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Root == "" {
		return errors.New("root directory is required")
	}
	return nil
}

// FileStore keeps one {root}/{key}.parquet file per key.
type FileStore struct {
	log  *slog.Logger
	root string
}

func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store: invalid config: %w", err)
	}
	return &FileStore{log: cfg.Logger, root: cfg.Root}, nil
}

func (s *FileStore) Root() string { return s.root }

// Path is the artifact location for key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.root, key+Ext)
}

func (s *FileStore) Load(ctx context.Context, key string) (*table.Table, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f, err := os.Open(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: open %s: %w", key, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, false, fmt.Errorf("store: stat %s: %w", key, err)
	}
	t, err := Decode(f, st.Size())
	if err != nil {
		return nil, false, &SerializationError{Key: key, Err: err}
	}
	s.log.Debug("store: loaded artifact", "key", key, "rows", t.NumRows(), "path", s.Path(key))
	return t, true, nil
}

// Save writes to a temp file in the root and renames it over the artifact, so
// readers see either the old or the new file and never a partial one.
func (s *FileStore) Save(ctx context.Context, key string, t *table.Table) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("store: create root %s: %w", s.root, err)
	}
	tmp, err := os.CreateTemp(s.root, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := Encode(tmp, t); err != nil {
		cleanup()
		return &SerializationError{Key: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("store: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", key, err)
	}
	s.log.Debug("store: saved artifact", "key", key, "rows", t.NumRows(), "path", s.Path(key))
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("store: unusable key %q", key)
	}
	return nil
}
