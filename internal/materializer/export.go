package materializer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tyler180/nba-stats-backends/internal/store"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

// game-log columns exported for Athena, in stats API casing
var exportColumns = []struct{ from, to string }{
	{"Game_ID", "game_id"},
	{"GAME_DATE", "game_date"},
	{"MATCHUP", "matchup"},
	{"WL", "wl"},
	{"PTS", "pts"},
}

type ExporterConfig struct {
	Logger *slog.Logger
	Client store.S3API
	Bucket string
	Prefix string // exports land under {Prefix}/team_games/
}

func (cfg *ExporterConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("s3 client is required")
	}
	if cfg.Bucket == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// Exporter writes team game logs as a season/team partitioned parquet layout.
type Exporter struct {
	log    *slog.Logger
	client store.S3API
	bucket string
	prefix string
}

func NewExporter(cfg ExporterConfig) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("materializer: invalid config: %w", err)
	}
	return &Exporter{log: cfg.Logger, client: cfg.Client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Location is the external table location.
func (e *Exporter) Location() string {
	return fmt.Sprintf("s3://%s/%s/", e.bucket, path.Join(e.prefix, GamesTable))
}

func (e *Exporter) ObjectKey(season, teamID string) string {
	return path.Join(e.prefix, GamesTable, "season="+season, "team_id="+teamID, "part-0.parquet")
}

// Export writes the game log of one team season, replacing an earlier export.
func (e *Exporter) Export(ctx context.Context, teamID, season string, log *table.Table) error {
	t, err := GamesProjection(log)
	if err != nil {
		return fmt.Errorf("materializer: team %s season %s: %w", teamID, season, err)
	}
	b, err := store.EncodeBytes(t)
	if err != nil {
		return fmt.Errorf("materializer: encode %s %s: %w", teamID, season, err)
	}
	key := e.ObjectKey(season, teamID)
	if _, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(b),
	}); err != nil {
		return fmt.Errorf("materializer: put s3://%s/%s: %w", e.bucket, key, err)
	}
	e.log.Debug("materializer: exported game log", "team", teamID, "season", season, "rows", t.NumRows())
	return nil
}

// GamesProjection keeps the exported columns under their lower-case names.
// Missing columns become all-null so every partition shares one schema.
func GamesProjection(log *table.Table) (*table.Table, error) {
	n := log.NumRows()
	cols := make([]table.Column, 0, len(exportColumns))
	for _, ec := range exportColumns {
		kind := table.String
		if ec.to == "pts" {
			kind = table.Int
		}
		vals := make([]any, n)
		if c, ok := log.Column(ec.from); ok {
			for r, v := range c.Values {
				vals[r] = coerce(kind, v)
			}
		}
		cols = append(cols, table.Column{Name: ec.to, Kind: kind, Values: vals})
	}
	return table.New(cols...)
}

func coerce(k table.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		if k == table.Int {
			return x
		}
		return fmt.Sprint(x)
	case float64:
		if k == table.Int {
			return int64(x)
		}
		return fmt.Sprint(x)
	case string:
		if k == table.String {
			return x
		}
		return nil
	default:
		if k == table.String {
			return fmt.Sprint(x)
		}
		return nil
	}
}
