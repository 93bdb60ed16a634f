package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, BackendFile, cfg.CacheBackend)
	assert.Equal(t, DefaultSeason, cfg.Season)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.DedupeFetches)
	assert.False(t, cfg.GameLogFallback)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{
		"NBA_DATA_DIR":       "/tmp/cache",
		"NBA_CACHE_BACKEND":  "S3",
		"NBA_S3_BUCKET":      "stats-bucket",
		"NBA_S3_PREFIX":      "/cache/",
		"HTTP_TIMEOUT_MS":    "1500",
		"NBA_DEDUPE_FETCHES": "false",
		"NBA_STATS_BASE_URL": "http://localhost:9999/stats/",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", cfg.DataDir)
	assert.Equal(t, BackendS3, cfg.CacheBackend)
	assert.Equal(t, "cache", cfg.S3Prefix)
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTPTimeout)
	assert.False(t, cfg.DedupeFetches)
	assert.Equal(t, "http://localhost:9999/stats", cfg.StatsBaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadNumber(t *testing.T) {
	_, err := Load(mapLookup(map[string]string{"HTTP_MAX_ATTEMPTS": "many"}))
	require.ErrorContains(t, err, "HTTP_MAX_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{"NBA_CACHE_BACKEND": "s3"}))
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "NBA_S3_BUCKET")

	cfg.CacheBackend = "redis"
	require.ErrorContains(t, cfg.Validate(), "unknown cache backend")
}

func TestBindFlags(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{"NBA_DATA_DIR": "from-env"}))
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--data-dir", "from-flag", "--season", "2020-21", "-v"}))

	assert.Equal(t, "from-flag", cfg.DataDir)
	assert.Equal(t, "2020-21", cfg.Season)
	assert.True(t, cfg.Debug)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NBA_TEST_DOTENV_SEASON=2018-19\n"), 0o644))
	t.Setenv("NBA_TEST_DOTENV_SEASON", "")
	os.Unsetenv("NBA_TEST_DOTENV_SEASON")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "2018-19", os.Getenv("NBA_TEST_DOTENV_SEASON"))
}
