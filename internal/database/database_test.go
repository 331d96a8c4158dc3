package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_RejectsInvalidConfig(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestNewDatabase_HealthCheckAndStats(t *testing.T) {
	skipIfNoDatabase(t)

	db, err := New(getTestConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RunMigrations("../../migrations"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.HealthCheck(ctx))

	stats := db.GetStats()
	assert.GreaterOrEqual(t, stats.MaxConns, int32(2))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.NoError(t, validateConfig(cfg))
}
