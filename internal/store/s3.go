package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3StoreConfig struct {
	Logger *slog.Logger
	Client S3API
	Bucket string
	Prefix string
}

func (cfg *S3StoreConfig) Validate() error {
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

// S3Store keeps one s3://{bucket}/{prefix}/{key}.parquet object per key.
// PutObject replaces an object atomically.
type S3Store struct {
	log    *slog.Logger
	client S3API
	bucket string
	prefix string
}

func NewS3Store(cfg S3StoreConfig) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store: invalid config: %w", err)
	}
	return &S3Store{log: cfg.Logger, client: cfg.Client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Store) Bucket() string { return s.bucket }

// ObjectKey is the object key for a cache key.
func (s *S3Store) ObjectKey(key string) string {
	return path.Join(s.prefix, key+Ext)
}

func (s *S3Store) Load(ctx context.Context, key string) (*table.Table, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: get s3://%s/%s: %w", s.bucket, s.ObjectKey(key), err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("store: read s3://%s/%s: %w", s.bucket, s.ObjectKey(key), err)
	}
	t, err := Decode(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, false, &SerializationError{Key: key, Err: err}
	}
	s.log.Debug("store: loaded object", "key", key, "rows", t.NumRows(), "bucket", s.bucket)
	return t, true, nil
}

func (s *S3Store) Save(ctx context.Context, key string, t *table.Table) error {
	if err := checkKey(key); err != nil {
		return err
	}
	b, err := EncodeBytes(t)
	if err != nil {
		return &SerializationError{Key: key, Err: err}
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(key)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return fmt.Errorf("store: put s3://%s/%s: %w", s.bucket, s.ObjectKey(key), err)
	}
	s.log.Debug("store: saved object", "key", key, "rows", t.NumRows(), "bucket", s.bucket, "bytes", len(b))
	return nil
}
