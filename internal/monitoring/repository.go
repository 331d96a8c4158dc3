package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/statuswatch/statuswatch-core/internal/database"
)

// =============================================================================
// PERSISTENCE LAYER
// Raw parameterized SQL against the five-table schema, following the
// teacher's PostgreSQLRepository style (ExecContext/GetContext/
// SelectContext, no ORM). The four-writes-per-result contract runs inside a
// single internal/database.Transaction.
// =============================================================================

// Repository is the persistence layer described in the DATA MODEL and
// Persistence Layer sections.
type Repository struct {
	pool *database.ConnectionPool
	db   *sqlx.DB
}

// NewRepository wraps an already-connected pool. db is an sqlx handle over
// the same underlying *sql.DB, used for the read-side derived-view queries.
func NewRepository(pool *database.ConnectionPool, db *sqlx.DB) *Repository {
	return &Repository{pool: pool, db: db}
}

// PersistResult performs the four writes for one ProbeResult, plus its
// error_type/uptime_bucket classification, inside a single transaction. A
// failure here must not abort persistence for other services in the same
// cycle; callers are expected to log and continue.
func (r *Repository) PersistResult(ctx context.Context, result ProbeResult, errorType ErrorType, bucket UptimeBucket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning persistence transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	if err := r.insertCheckLog(ctx, tx, result, errorType); err != nil {
		return fmt.Errorf("insert check_log: %w", err)
	}

	if err := r.insertResponseTimeSample(ctx, tx, result); err != nil {
		return fmt.Errorf("insert response_time_sample: %w", err)
	}

	if err := r.upsertDailyCallAggregate(ctx, tx, result); err != nil {
		return fmt.Errorf("upsert daily_call_aggregate: %w", err)
	}

	if err := r.upsertDailyUptimeBucket(ctx, tx, result, bucket); err != nil {
		return fmt.Errorf("upsert daily_uptime_bucket: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing persistence transaction: %w", err)
	}
	committed = true

	return nil
}

func (r *Repository) insertCheckLog(ctx context.Context, tx *database.Transaction, result ProbeResult, errorType ErrorType) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO check_logs (service_id, session_id, status, status_code, error_type, error_message, attempts, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ServiceID, result.SessionID, string(result.Status), result.StatusCode,
		string(errorType), result.ErrorMessage, result.Attempts, result.CheckedAt,
	)
	return err
}

func (r *Repository) insertResponseTimeSample(ctx context.Context, tx *database.Transaction, result ProbeResult) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO response_time_samples (service_id, response_time_ms, recorded_at)
		VALUES ($1, $2, $3)`,
		result.ServiceID, result.ResponseTimeMS, result.CheckedAt,
	)
	return err
}

// upsertDailyCallAggregate maintains the running mean for (service_id, day).
// The ON CONFLICT branch recomputes avg as a running mean over the row's
// call_count after increment, per the Persistence Layer contract.
func (r *Repository) upsertDailyCallAggregate(ctx context.Context, tx *database.Transaction, result ProbeResult) error {
	day := result.CheckedAt.UTC().Truncate(24 * time.Hour)
	// success_calls counts checks that actually succeeded (2xx/expected), not
	// the live status field: a degraded (unexpected-4xx) result is an error
	// call here, matching FailedCheckCount's status != 'up' rule.
	isSuccess := result.Status == ServiceStatusUp

	_, err := tx.Exec(ctx, `
		INSERT INTO daily_call_aggregates (service_id, date, call_count, success_calls, error_calls, avg_response_time_ms, min_response_time_ms, max_response_time_ms)
		VALUES ($1, $2, 1, $3, $4, $5, $5, $5)
		ON CONFLICT (service_id, date) DO UPDATE SET
			call_count = daily_call_aggregates.call_count + 1,
			success_calls = daily_call_aggregates.success_calls + $3,
			error_calls = daily_call_aggregates.error_calls + $4,
			avg_response_time_ms = ROUND((daily_call_aggregates.avg_response_time_ms * daily_call_aggregates.call_count + $5::numeric) / (daily_call_aggregates.call_count + 1)),
			min_response_time_ms = LEAST(daily_call_aggregates.min_response_time_ms, $5),
			max_response_time_ms = GREATEST(daily_call_aggregates.max_response_time_ms, $5)`,
		result.ServiceID, day, boolToInt(isSuccess), boolToInt(!isSuccess), result.ResponseTimeMS,
	)
	return err
}

// upsertDailyUptimeBucket overwrites the day's bucket, response_time_ms and
// error_message with the most recent classification (last-writer wins
// within the UTC day), per Persistence §4.4 step 4.
func (r *Repository) upsertDailyUptimeBucket(ctx context.Context, tx *database.Transaction, result ProbeResult, bucket UptimeBucket) error {
	day := result.CheckedAt.UTC().Truncate(24 * time.Hour)
	failed := bucket != BucketOperational

	_, err := tx.Exec(ctx, `
		INSERT INTO daily_uptime_buckets (service_id, date, bucket, total_checks, failed_checks, response_time_ms, error_message)
		VALUES ($1, $2, $3, 1, $4, $5, $6)
		ON CONFLICT (service_id, date) DO UPDATE SET
			bucket = $3,
			total_checks = daily_uptime_buckets.total_checks + 1,
			failed_checks = daily_uptime_buckets.failed_checks + $4,
			response_time_ms = $5,
			error_message = $6`,
		result.ServiceID, day, string(bucket), boolToInt(failed), result.ResponseTimeMS, result.ErrorMessage,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// Service dimension
// -----------------------------------------------------------------------------

// GetService fetches one Service row by id.
func (r *Repository) GetService(ctx context.Context, id string) (*Service, error) {
	var svc Service
	err := r.db.GetContext(ctx, &svc, `SELECT id, name, url, check_interval_sec, timeout_ms, max_retries, status, enabled, created_at, updated_at FROM services WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("service not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListServices returns every Service row, used by the maintenance loop's
// daily rebuild step and the SystemStatus reduction.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	err := r.db.SelectContext(ctx, &services, `SELECT id, name, url, check_interval_sec, timeout_ms, max_retries, status, enabled, created_at, updated_at FROM services ORDER BY id`)
	return services, err
}

// UpsertService inserts a Service row if absent, or updates its url and
// updated_at if the url changed. Never deletes a row: historical references
// from the time-series tables must keep resolving.
func (r *Repository) UpsertService(ctx context.Context, svc ServiceConfig) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, url, check_interval_sec, timeout_ms, max_retries, status, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			updated_at = now()
		WHERE services.url IS DISTINCT FROM EXCLUDED.url`,
		svc.ID, svc.Name, svc.URL,
		int(svc.CycleInterval.Seconds()), int(svc.Timeout.Milliseconds()), svc.Retries,
		string(ServiceStatusUnknown),
	)
	return err
}

// UpdateServiceStatus records the live status field after a cycle's probe.
func (r *Repository) UpdateServiceStatus(ctx context.Context, serviceID string, status ServiceStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE services SET status = $1, updated_at = now() WHERE id = $2`, string(status), serviceID)
	return err
}

// -----------------------------------------------------------------------------
// Retention and maintenance
// -----------------------------------------------------------------------------

const deleteBatchSize = 5000

// DeleteCheckLogsOlderThan removes check_logs rows older than cutoff, in
// bounded-size batches so a large backlog doesn't hold a long-running lock.
func (r *Repository) DeleteCheckLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteOlderThan(ctx, "check_logs", "checked_at", cutoff)
}

// DeleteResponseTimeSamplesOlderThan removes response_time_samples rows older than cutoff.
func (r *Repository) DeleteResponseTimeSamplesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteOlderThan(ctx, "response_time_samples", "recorded_at", cutoff)
}

// DeleteDailyCallAggregatesOlderThan removes daily_call_aggregates rows older than cutoff.
func (r *Repository) DeleteDailyCallAggregatesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteOlderThan(ctx, "daily_call_aggregates", "date", cutoff)
}

// DeleteDailyUptimeBucketsOlderThan removes daily_uptime_buckets rows older than cutoff.
func (r *Repository) DeleteDailyUptimeBucketsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteOlderThan(ctx, "daily_uptime_buckets", "date", cutoff)
}

func (r *Repository) deleteOlderThan(ctx context.Context, table, column string, cutoff time.Time) (int64, error) {
	var total int64
	for {
		result, err := r.pool.Exec(ctx, fmt.Sprintf(`
			DELETE FROM %s WHERE ctid IN (
				SELECT ctid FROM %s WHERE %s < $1 LIMIT %d
			)`, table, table, column, deleteBatchSize), cutoff)
		if err != nil {
			return total, fmt.Errorf("deleting from %s: %w", table, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
		if n < deleteBatchSize {
			break
		}
	}
	return total, nil
}

// RebuildDailyCallAggregate recomputes the (service_id, day) aggregate from
// ResponseTimeSample, idempotently. Used by the maintenance loop's daily
// rebuild step.
func (r *Repository) RebuildDailyCallAggregate(ctx context.Context, serviceID string, day time.Time) error {
	day = day.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_call_aggregates (service_id, date, call_count, success_calls, error_calls, avg_response_time_ms, min_response_time_ms, max_response_time_ms)
		SELECT
			$1,
			$2,
			COUNT(*),
			COUNT(*) FILTER (WHERE cl.status = 'up'),
			COUNT(*) FILTER (WHERE cl.status != 'up'),
			COALESCE(ROUND(AVG(rts.response_time_ms)), 0),
			COALESCE(MIN(rts.response_time_ms), 0),
			COALESCE(MAX(rts.response_time_ms), 0)
		FROM response_time_samples rts
		JOIN check_logs cl ON cl.service_id = rts.service_id AND cl.checked_at = rts.recorded_at
		WHERE rts.service_id = $1 AND rts.recorded_at >= $2 AND rts.recorded_at < $3
		ON CONFLICT (service_id, date) DO UPDATE SET
			call_count = EXCLUDED.call_count,
			success_calls = EXCLUDED.success_calls,
			error_calls = EXCLUDED.error_calls,
			avg_response_time_ms = EXCLUDED.avg_response_time_ms,
			min_response_time_ms = EXCLUDED.min_response_time_ms,
			max_response_time_ms = EXCLUDED.max_response_time_ms`,
		serviceID, day, next,
	)
	return err
}

// -----------------------------------------------------------------------------
// Read path for the derived-view readers
// -----------------------------------------------------------------------------

// LatestUptimeBuckets returns each service's most recent DailyUptimeBucket,
// used by the SystemStatus snapshot reduction.
func (r *Repository) LatestUptimeBuckets(ctx context.Context) ([]DailyUptimeBucket, error) {
	var buckets []DailyUptimeBucket
	err := r.db.SelectContext(ctx, &buckets, `
		SELECT DISTINCT ON (service_id) service_id, date, bucket, total_checks, failed_checks, response_time_ms, error_message
		FROM daily_uptime_buckets
		ORDER BY service_id, date DESC`)
	return buckets, err
}

// UptimeBucketsSince returns a service's DailyUptimeBucket rows over the
// trailing window [since, now), ordered by date ascending.
func (r *Repository) UptimeBucketsSince(ctx context.Context, serviceID string, since time.Time) ([]DailyUptimeBucket, error) {
	var buckets []DailyUptimeBucket
	err := r.db.SelectContext(ctx, &buckets, `
		SELECT service_id, date, bucket, total_checks, failed_checks, response_time_ms, error_message
		FROM daily_uptime_buckets
		WHERE service_id = $1 AND date >= $2
		ORDER BY date ASC`, serviceID, since.UTC().Truncate(24*time.Hour))
	return buckets, err
}

// ServiceHistory returns ResponseTimeSample rows for a service within
// [start, end), ordered chronologically. Backs GetServiceHistory (§12).
func (r *Repository) ServiceHistory(ctx context.Context, serviceID string, start, end time.Time) ([]ResponseTimeSample, error) {
	var samples []ResponseTimeSample
	err := r.db.SelectContext(ctx, &samples, `
		SELECT id, service_id, response_time_ms, recorded_at
		FROM response_time_samples
		WHERE service_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC`, serviceID, start, end)
	return samples, err
}

// FailedCheckCount counts check_logs rows for a service in [start, end)
// whose status was not up, used by the SLA compliance reader.
func (r *Repository) FailedCheckCount(ctx context.Context, serviceID string, start, end time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM check_logs
		WHERE service_id = $1 AND checked_at >= $2 AND checked_at < $3 AND status != $4`,
		serviceID, start, end, string(ServiceStatusUp))
	return count, err
}
