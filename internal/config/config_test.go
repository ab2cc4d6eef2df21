package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "casefile.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.ImportWorkers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CASEFILE_DB_PATH", "/var/lib/casefile/registry.db")
	t.Setenv("CASEFILE_LOG_LEVEL", "debug")
	t.Setenv("CASEFILE_LOG_JSON", "true")
	t.Setenv("CASEFILE_CACHE_TTL", "90s")
	t.Setenv("CASEFILE_IMPORT_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/casefile/registry.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.ImportWorkers)
}

func TestLoad_RejectsZeroWorkers(t *testing.T) {
	t.Setenv("CASEFILE_IMPORT_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import workers")
}

func TestLoad_RejectsNegativeTTL(t *testing.T) {
	t.Setenv("CASEFILE_CACHE_TTL", "-1m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache TTL")
}

func TestLoad_RejectsMalformedDuration(t *testing.T) {
	t.Setenv("CASEFILE_CACHE_TTL", "soonish")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsEmptyDBPath(t *testing.T) {
	t.Setenv("CASEFILE_DB_PATH", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestLoad_RejectsMalformedWorkerCount(t *testing.T) {
	t.Setenv("CASEFILE_IMPORT_WORKERS", "many")

	_, err := Load()
	require.Error(t, err)
}
