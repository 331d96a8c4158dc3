package monitoring

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuswatch/statuswatch-core/internal/database"
)

// newMockRepository wires a Repository against a go-sqlmock driver instead
// of a live Postgres instance, for the read-path and transaction-shape
// assertions that don't need real SQL semantics (upsert arithmetic is
// covered against real Postgres in repository_test.go).
func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := database.NewConnectionPoolFromDB(db)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewRepository(pool, sqlxDB), mock
}

func TestRepository_GetService_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, name, url .* FROM services WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetService(context.Background(), "missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "service not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetService_Found(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "url", "check_interval_sec", "timeout_ms", "max_retries", "status", "enabled", "created_at", "updated_at",
	}).AddRow("svc-1", "Service One", "https://example.com", 60, 10000, 3, "up", true, now, now)

	mock.ExpectQuery("SELECT id, name, url .* FROM services WHERE id = \\$1").
		WithArgs("svc-1").
		WillReturnRows(rows)

	svc, err := repo.GetService(context.Background(), "svc-1")
	require.NoError(t, err)
	assert.Equal(t, "svc-1", svc.ID)
	assert.Equal(t, ServiceStatusUp, svc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListServices(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "url", "check_interval_sec", "timeout_ms", "max_retries", "status", "enabled", "created_at", "updated_at",
	}).
		AddRow("svc-1", "Service One", "https://one.example.com", 60, 10000, 3, "up", true, now, now).
		AddRow("svc-2", "Service Two", "https://two.example.com", 60, 10000, 3, "down", true, now, now)

	mock.ExpectQuery("SELECT id, name, url .* FROM services ORDER BY id").
		WillReturnRows(rows)

	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "svc-1", services[0].ID)
	assert.Equal(t, "svc-2", services[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRepository_PersistResult_RollsBackOnWriteFailure exercises the
// four-writes-per-result transaction shape (§4.4): a failure on the second
// write must roll back the whole transaction, leaving no partial row.
func TestRepository_PersistResult_RollsBackOnWriteFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO check_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO response_time_samples").WillReturnError(assertableDBErr{})
	mock.ExpectRollback()

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

	err := repo.PersistResult(context.Background(), result, errorType, bucket)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRepository_PersistResult_CommitsAllFourWrites exercises the happy path
// ordering invariant from §5: check_logs, then response_time_samples, then
// the two upserts, all inside one committed transaction.
func TestRepository_PersistResult_CommitsAllFourWrites(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO check_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO response_time_samples").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO daily_call_aggregates").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO daily_uptime_buckets").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

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

	err := repo.PersistResult(context.Background(), result, errorType, bucket)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type assertableDBErr struct{}

func (assertableDBErr) Error() string { return "simulated write failure" }
