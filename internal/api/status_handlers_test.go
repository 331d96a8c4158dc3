package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/statuswatch/statuswatch-core/internal/database"
	"github.com/statuswatch/statuswatch-core/internal/monitoring"
)

// skipIfNoDatabase mirrors internal/monitoring/repository_test.go: these
// exercise the handlers against a real Postgres instance with the schema
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

func newTestServer(t *testing.T) (*httptest.Server, *database.ConnectionPool) {
	gin.SetMode(gin.TestMode)

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
	repo := monitoring.NewRepository(pool, db)
	views := monitoring.NewViews(repo, nil, nil, 0)

	registry, err := monitoring.NewRegistry("testdata-nonexistent.env", "testdata-nonexistent.yaml", nil)
	require.NoError(t, err)

	prober := monitoring.NewProber(nil)
	scheduler := monitoring.NewScheduler(registry, prober, repo, nil, monitoring.NewMetrics(), nil)

	handlers := NewStatusHandlers(views, repo, scheduler)
	server := NewServer(":0", true, handlers, nil)

	ts := httptest.NewServer(server.router)
	t.Cleanup(ts.Close)
	return ts, pool
}

func cleanTables(t *testing.T, pool *database.ConnectionPool) {
	ctx := context.Background()
	for _, table := range []string{"daily_uptime_buckets", "daily_call_aggregates", "response_time_samples", "check_logs", "services"} {
		_, err := pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
}

func decodeSuccess(t *testing.T, resp *http.Response) SuccessResponse {
	var out SuccessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStatusHandlers_SystemStatus(t *testing.T) {
	skipIfNoDatabase(t)

	ts, pool := newTestServer(t)
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSuccess(t, resp)
	require.True(t, out.Success)
}

func TestStatusHandlers_UptimeUnknownServiceIs404(t *testing.T) {
	skipIfNoDatabase(t)

	ts, pool := newTestServer(t)
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	resp, err := http.Get(ts.URL + "/api/v1/services/does-not-exist/uptime")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusHandlers_UptimeWithRangeParam(t *testing.T) {
	skipIfNoDatabase(t)

	ts, pool := newTestServer(t)
	ctx := context.Background()
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	db := sqlx.NewDb(pool.DB(), "postgres")
	repo := monitoring.NewRepository(pool, db)
	require.NoError(t, repo.UpsertService(ctx, monitoring.ServiceConfig{
		ID: "svc-1", Name: "Service One", URL: "https://example.com",
		CycleInterval: 60 * time.Second, Timeout: 5 * time.Second, Retries: 3,
	}))

	resp, err := http.Get(ts.URL + "/api/v1/services/svc-1/uptime?range=7d")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSuccess(t, resp)
	data, ok := out.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(7), data["days"])
}

func TestStatusHandlers_ManualProbeUnknownServiceIs404(t *testing.T) {
	skipIfNoDatabase(t)

	ts, pool := newTestServer(t)
	cleanTables(t, pool)
	defer cleanTables(t, pool)

	resp, err := http.Post(ts.URL+"/api/v1/services/does-not-exist/probe", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
