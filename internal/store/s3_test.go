package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/nba-stats-backends/internal/logger"
	"github.com/tyler180/nba-stats-backends/internal/table"
)

// fake client implementing S3API over an in-memory bucket
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	getErr  error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func newS3Store(t *testing.T, fc *fakeS3) *S3Store {
	t.Helper()
	s, err := NewS3Store(S3StoreConfig{Logger: logger.NewTestLogger(), Client: fc, Bucket: "stats", Prefix: "nba_data"})
	require.NoError(t, err)
	return s
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fc := &fakeS3{}
	s := newS3Store(t, fc)

	_, found, err := s.Load(ctx, "teams")
	require.NoError(t, err)
	require.False(t, found)

	in := gameLog()
	require.NoError(t, s.Save(ctx, "teams", in))
	require.Contains(t, fc.objects, "stats/nba_data/teams.parquet")

	out, found, err := s.Load(ctx, "teams")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, table.Equal(in, out))
}

func TestS3Store_CorruptObject(t *testing.T) {
	fc := &fakeS3{objects: map[string][]byte{"stats/nba_data/teams.parquet": []byte("PAR1 nope")}}
	s := newS3Store(t, fc)

	_, _, err := s.Load(context.Background(), "teams")
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
}

func TestS3Store_TransportError(t *testing.T) {
	boom := errors.New("connection reset")
	s := newS3Store(t, &fakeS3{getErr: boom})

	_, found, err := s.Load(context.Background(), "teams")
	require.False(t, found)
	require.ErrorIs(t, err, boom)
	var serr *SerializationError
	require.False(t, errors.As(err, &serr))
}
