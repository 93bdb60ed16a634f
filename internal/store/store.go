// Package store persists tables as parquet artifacts, one per cache key.
package store

import (
	"context"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

// Store is a persistent key to table mapping. Load reports found=false for a
// key that was never saved; an artifact that exists but cannot be decoded is
// returned as a *SerializationError. Save replaces any previous artifact whole.
type Store interface {
	Load(ctx context.Context, key string) (t *table.Table, found bool, err error)
	Save(ctx context.Context, key string, t *table.Table) error
}

// Ext is the artifact file extension.
const Ext = ".parquet"
