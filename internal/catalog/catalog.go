// Package catalog indexes cache writes in DynamoDB so the warmed datasets
// can be listed without touching the store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

const maxBatch = 25

type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Entry describes one cached dataset.
type Entry struct {
	Key         string
	Backend     string
	Rows        int
	Columns     int
	ColumnNames []string
	UpdatedAt   time.Time
}

// EntryFor summarises t as stored under key.
func EntryFor(key, backend string, t *table.Table, at time.Time) Entry {
	return Entry{
		Key:         key,
		Backend:     backend,
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		ColumnNames: t.ColumnNames(),
		UpdatedAt:   at.UTC().Truncate(time.Second),
	}
}

type Config struct {
	Logger  *slog.Logger
	Client  DynamoDBAPI
	Table   string
	Backend string
	Clock   clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("dynamodb client is required")
	}
	if cfg.Table == "" {
		return errors.New("table name is required")
	}
	if cfg.Backend == "" {
		return errors.New("backend is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Catalog struct {
	log     *slog.Logger
	ddb     DynamoDBAPI
	table   string
	backend string
	clock   clockwork.Clock
}

func New(cfg Config) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: invalid config: %w", err)
	}
	return &Catalog{log: cfg.Logger, ddb: cfg.Client, table: cfg.Table, backend: cfg.Backend, clock: cfg.Clock}, nil
}

// Record upserts the entry for a freshly written table.
func (c *Catalog) Record(ctx context.Context, key string, t *table.Table) error {
	e := EntryFor(key, c.backend, t, c.clock.Now())
	_, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      itemFor(e),
	})
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", key, err)
	}
	c.log.Debug("catalog: recorded entry", "key", key, "rows", e.Rows)
	return nil
}

// RecordAll upserts entries in batches of 25, retrying unprocessed items.
func (c *Catalog) RecordAll(ctx context.Context, entries []Entry) error {
	for i := 0; i < len(entries); i += maxBatch {
		end := i + maxBatch
		if end > len(entries) {
			end = len(entries)
		}
		reqs := make([]types.WriteRequest, 0, end-i)
		for _, e := range entries[i:end] {
			if e.Key == "" {
				continue
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: itemFor(e)}})
		}
		if len(reqs) == 0 {
			continue
		}
		if err := c.batchWriteWithRetry(ctx, reqs); err != nil {
			return fmt.Errorf("catalog: batch write: %w", err)
		}
	}
	c.log.Info("catalog: recorded entries", "count", len(entries), "table", c.table)
	return nil
}

func (c *Catalog) batchWriteWithRetry(ctx context.Context, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{c.table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := c.ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return fmt.Errorf("unprocessed items remained after retries for table %s", c.table)
}

// List scans the whole catalog, ordered by key.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	var (
		out   []Entry
		start map[string]types.AttributeValue
	)
	for {
		page, err := c.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(c.table),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		for _, it := range page.Items {
			out = append(out, entryFrom(it))
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func itemFor(e Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"CacheKey":    &types.AttributeValueMemberS{Value: e.Key}, // PK
		"Backend":     &types.AttributeValueMemberS{Value: e.Backend},
		"Rows":        &types.AttributeValueMemberN{Value: strconv.Itoa(e.Rows)},
		"Columns":     &types.AttributeValueMemberN{Value: strconv.Itoa(e.Columns)},
		"ColumnNames": &types.AttributeValueMemberS{Value: strings.Join(e.ColumnNames, ",")},
		"UpdatedAt":   &types.AttributeValueMemberN{Value: strconv.FormatInt(e.UpdatedAt.Unix(), 10)},
	}
}

func entryFrom(it map[string]types.AttributeValue) Entry {
	e := Entry{
		Key:     getStr(it, "CacheKey"),
		Backend: getStr(it, "Backend"),
		Rows:    int(getNum(it, "Rows")),
		Columns: int(getNum(it, "Columns")),
	}
	if names := getStr(it, "ColumnNames"); names != "" {
		e.ColumnNames = strings.Split(names, ",")
	}
	if ts := getNum(it, "UpdatedAt"); ts > 0 {
		e.UpdatedAt = time.Unix(ts, 0).UTC()
	}
	return e
}

func getStr(m map[string]types.AttributeValue, key string) string {
	if v, ok := m[key].(*types.AttributeValueMemberS); ok {
		return strings.TrimSpace(v.Value)
	}
	return ""
}

func getNum(m map[string]types.AttributeValue, key string) int64 {
	if v, ok := m[key].(*types.AttributeValueMemberN); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v.Value), 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}
