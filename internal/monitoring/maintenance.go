package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// MAINTENANCE LOOP
// Runs once per day, gated on a configured hour, following the teacher's
// three-ticker cmd/api/main.go maintenance scheduler generalized to six
// ordered, independently-isolated steps. A failure in one
// step never prevents the remaining steps from running.
// =============================================================================

const (
	checkLogRetention           = 30 * 24 * time.Hour
	responseTimeSampleRetention = 30 * 24 * time.Hour
	dailyCallAggregateRetention = 90 * 24 * time.Hour

	// DailyUptimeBucketRetention is fixed at 366 days (DESIGN.md's Open
	// Question resolution #3); no configuration option overrides it.
	DailyUptimeBucketRetention = 366 * 24 * time.Hour
)

// MaintenanceLoop runs the daily retention/rebuild/snapshot steps.
type MaintenanceLoop struct {
	repository *Repository
	registry   *Registry
	hour       int // UTC hour to run the daily pass, e.g. 3 for 3am UTC
	log        *logrus.Logger

	uptimeBucketRetention time.Duration

	snapshotMu   sync.Mutex
	lastSnapshot SystemStatus
}

// NewMaintenanceLoop builds a maintenance loop gated on hourUTC (0-23).
func NewMaintenanceLoop(repository *Repository, registry *Registry, hourUTC int, log *logrus.Logger) *MaintenanceLoop {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MaintenanceLoop{
		repository:            repository,
		registry:              registry,
		hour:                  hourUTC,
		log:                   log,
		uptimeBucketRetention: DailyUptimeBucketRetention,
	}
}

// Run ticks every checkInterval, running the daily pass exactly once per
// calendar day when the current UTC hour matches the configured hour.
func (m *MaintenanceLoop) Run(ctx context.Context, checkInterval time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	lastRunDay := ""

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			today := now.Format("2006-01-02")
			if now.Hour() != m.hour || today == lastRunDay {
				continue
			}
			lastRunDay = today
			m.RunOnce(ctx)
		}
	}
}

// RunOnce executes the six ordered steps, isolating each one's failure from
// the rest.
func (m *MaintenanceLoop) RunOnce(ctx context.Context) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)

	m.step("rebuild_daily_call_aggregate", func() error {
		services, err := m.repository.ListServices(ctx)
		if err != nil {
			return err
		}
		for _, svc := range services {
			if err := m.repository.RebuildDailyCallAggregate(ctx, svc.ID, yesterday); err != nil {
				m.log.WithField("service_id", svc.ID).WithError(err).Warn("failed to rebuild daily call aggregate")
			}
		}
		return nil
	})

	m.step("delete_check_logs", func() error {
		n, err := m.repository.DeleteCheckLogsOlderThan(ctx, time.Now().UTC().Add(-checkLogRetention))
		if err == nil {
			m.log.WithField("deleted", n).Info("check_logs retention pass complete")
		}
		return err
	})

	m.step("delete_response_time_samples", func() error {
		n, err := m.repository.DeleteResponseTimeSamplesOlderThan(ctx, time.Now().UTC().Add(-responseTimeSampleRetention))
		if err == nil {
			m.log.WithField("deleted", n).Info("response_time_samples retention pass complete")
		}
		return err
	})

	m.step("delete_daily_call_aggregates", func() error {
		n, err := m.repository.DeleteDailyCallAggregatesOlderThan(ctx, time.Now().UTC().Add(-dailyCallAggregateRetention))
		if err == nil {
			m.log.WithField("deleted", n).Info("daily_call_aggregates retention pass complete")
		}
		return err
	})

	m.step("delete_daily_uptime_buckets", func() error {
		n, err := m.repository.DeleteDailyUptimeBucketsOlderThan(ctx, time.Now().UTC().Add(-m.uptimeBucketRetention))
		if err == nil {
			m.log.WithField("deleted", n).Info("daily_uptime_buckets retention pass complete")
		}
		return err
	})

	m.step("system_status_snapshot", func() error {
		snapshot, err := computeSystemStatusSnapshot(ctx, m.repository)
		if err != nil {
			return err
		}
		m.snapshotMu.Lock()
		m.lastSnapshot = snapshot
		m.snapshotMu.Unlock()
		m.log.WithFields(logrus.Fields{
			"overall_status": snapshot.OverallStatus,
			"total":          snapshot.TotalServices,
			"up":             snapshot.UpServices,
			"degraded":       snapshot.DegradedServices,
			"down":           snapshot.DownServices,
		}).Info("system status snapshot")
		return nil
	})
}

func (m *MaintenanceLoop) step(name string, fn func() error) {
	if err := fn(); err != nil {
		m.log.WithField("step", name).WithError(err).Error("maintenance step failed, continuing")
	}
}

// LastSnapshot returns the most recently computed SystemStatus snapshot.
func (m *MaintenanceLoop) LastSnapshot() SystemStatus {
	m.snapshotMu.Lock()
	defer m.snapshotMu.Unlock()
	return m.lastSnapshot
}
