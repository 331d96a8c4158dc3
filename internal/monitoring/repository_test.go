package monitoring

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/statuswatch/statuswatch-core/internal/database"
)

// skipIfNoDatabase mirrors internal/database/connection_test.go: these are
// integration tests against a real Postgres instance with the schema
// migrations already applied.
func skipIfNoDatabase(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test - set INTEGRATION_TEST=true to run")
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func newTestRepository(t *testing.T) (*Repository, *database.ConnectionPool) {
	cfg := &database.Config{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     5432,
		Database: getEnvOrDefault("TEST_DB_NAME", "statusmon_test"),
		Username: getEnvOrDefault("TEST_DB_USER", "statusmon"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "test_password"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	pool, err := database.NewConnectionPool(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	db := sqlx.NewDb(pool.DB(), "postgres")
	return NewRepository(pool, db), pool
}

func cleanTables(t *testing.T, pool *database.ConnectionPool) {
	ctx := context.Background()
	for _, table := range []string{"daily_uptime_buckets", "daily_call_aggregates", "response_time_samples", "check_logs", "services"} {
		_, err := pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
}

func TestRepository_PersistResultAndReadBack(t *testing.T) {
	skipIfNoDatabase(t)

	repo, pool := newTestRepository(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	require.NoError(t, repo.UpsertService(ctx, ServiceConfig{
		ID: "svc-1", Name: "Service One", URL: "https://example.com",
		CycleInterval: 60 * time.Second, Timeout: 5 * time.Second, Retries: 3,
	}))

	result := ProbeResult{
		ServiceID:      "svc-1",
		SessionID:      "session-1",
		Status:         ServiceStatusUp,
		StatusCode:     200,
		ResponseTimeMS: 120,
		Attempts:       1,
		CheckedAt:      time.Now().UTC(),
	}
	errorType, bucket := Classify(result)
	require.NoError(t, repo.PersistResult(ctx, result, errorType, bucket))

	svc, err := repo.GetService(ctx, "svc-1")
	require.NoError(t, err)
	require.Equal(t, "svc-1", svc.ID)

	buckets, err := repo.UptimeBucketsSince(ctx, "svc-1", time.Now().UTC().AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, BucketOperational, buckets[0].Bucket)
	require.Equal(t, 120, buckets[0].ResponseTimeMS)
	require.Empty(t, buckets[0].ErrorMessage)

	samples, err := repo.ServiceHistory(ctx, "svc-1", time.Now().UTC().AddDate(0, 0, -1), time.Now().UTC().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 120, samples[0].ResponseTimeMS)
}

func TestRepository_UpsertDailyCallAggregate_RunningMean(t *testing.T) {
	skipIfNoDatabase(t)

	repo, pool := newTestRepository(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	require.NoError(t, repo.UpsertService(ctx, ServiceConfig{
		ID: "svc-1", Name: "Service One", URL: "https://example.com",
		CycleInterval: 60 * time.Second, Timeout: 5 * time.Second, Retries: 3,
	}))

	now := time.Now().UTC()
	for _, rt := range []int{100, 200} {
		result := ProbeResult{ServiceID: "svc-1", SessionID: "s", Status: ServiceStatusUp, StatusCode: 200, ResponseTimeMS: rt, CheckedAt: now}
		errorType, bucket := Classify(result)
		require.NoError(t, repo.PersistResult(ctx, result, errorType, bucket))
	}

	var avg int
	require.NoError(t, pool.QueryRow(ctx, "SELECT avg_response_time_ms FROM daily_call_aggregates WHERE service_id = $1", "svc-1").Scan(&avg))
	require.Equal(t, 150, avg)
}

func TestRepository_DeleteCheckLogsOlderThan(t *testing.T) {
	skipIfNoDatabase(t)

	repo, pool := newTestRepository(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	require.NoError(t, repo.UpsertService(ctx, ServiceConfig{
		ID: "svc-1", Name: "Service One", URL: "https://example.com",
		CycleInterval: 60 * time.Second, Timeout: 5 * time.Second, Retries: 3,
	}))

	old := ProbeResult{ServiceID: "svc-1", SessionID: "s", Status: ServiceStatusUp, StatusCode: 200, ResponseTimeMS: 10, CheckedAt: time.Now().UTC().AddDate(0, 0, -40)}
	errorType, bucket := Classify(old)
	require.NoError(t, repo.PersistResult(ctx, old, errorType, bucket))

	n, err := repo.DeleteCheckLogsOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
