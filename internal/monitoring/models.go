package monitoring

import (
	"time"
)

// =============================================================================
// DATA MODEL
// The five persisted tables plus the in-memory types exchanged between the
// prober, classifier, scheduler and persistence layer during a single probe
// cycle.
// =============================================================================

// ServiceStatus is the live classification attached to a Service after its
// most recent probe.
type ServiceStatus string

const (
	ServiceStatusUp       ServiceStatus = "up"
	ServiceStatusDegraded ServiceStatus = "degraded"
	ServiceStatusDown     ServiceStatus = "down"
	ServiceStatusUnknown  ServiceStatus = "unknown"
)

// UptimeBucket is the per-day classification recorded in DailyUptimeBucket.
type UptimeBucket string

const (
	BucketOperational       UptimeBucket = "o"  // day's latest result had a status code below 400
	BucketPartialOutage     UptimeBucket = "po" // day's latest result had a 4xx status code
	BucketMajorOutage       UptimeBucket = "mo" // day's latest result had a 5xx or no response
	BucketNoData            UptimeBucket = "nd" // no checks ran that day
	BucketMaintenanceExempt UptimeBucket = "e"  // day excluded from SLA math
)

// ErrorType is the classifier's taxonomy for a failed ProbeResult.
type ErrorType string

const (
	ErrorTypeNone            ErrorType = ""
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeConnectionError ErrorType = "connection_error"
	ErrorTypeDNSError        ErrorType = "dns_error"
	ErrorTypeHTTPError       ErrorType = "http_error"
)

// Service is a monitored endpoint. Rows are reconciled at startup by the
// service initializer and never deleted once created.
type Service struct {
	ID               string        `db:"id" json:"id"`
	Name             string        `db:"name" json:"name"`
	URL              string        `db:"url" json:"url"`
	ExpectedStatuses []int         `db:"-" json:"expected_statuses"`
	CheckIntervalSec int           `db:"check_interval_sec" json:"check_interval_sec"`
	TimeoutMS        int           `db:"timeout_ms" json:"timeout_ms"`
	MaxRetries       int           `db:"max_retries" json:"max_retries"`
	Status           ServiceStatus `db:"status" json:"status"`
	Enabled          bool          `db:"enabled" json:"enabled"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// CheckLog is one row per probe attempt result, retained 30 days.
type CheckLog struct {
	ID           int64         `db:"id" json:"id"`
	ServiceID    string        `db:"service_id" json:"service_id"`
	SessionID    string        `db:"session_id" json:"session_id"`
	Status       ServiceStatus `db:"status" json:"status"`
	StatusCode   int           `db:"status_code" json:"status_code"`
	ErrorType    ErrorType     `db:"error_type" json:"error_type,omitempty"`
	ErrorMessage string        `db:"error_message" json:"error_message,omitempty"`
	Attempts     int           `db:"attempts" json:"attempts"`
	CheckedAt    time.Time     `db:"checked_at" json:"checked_at"`
}

// ResponseTimeSample is one row per probe result's measured latency,
// retained 30 days. Kept separate from CheckLog so latency queries (used by
// the derived-view readers) don't have to scan error-classification columns.
type ResponseTimeSample struct {
	ID             int64     `db:"id" json:"id"`
	ServiceID      string    `db:"service_id" json:"service_id"`
	ResponseTimeMS int       `db:"response_time_ms" json:"response_time_ms"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
}

// DailyCallAggregate is the running-mean rollup of a service's response
// times for one calendar day, retained 90 days.
type DailyCallAggregate struct {
	ServiceID         string    `db:"service_id" json:"service_id"`
	Date              time.Time `db:"date" json:"date"`
	CallCount         int       `db:"call_count" json:"call_count"`
	AvgResponseTimeMS int       `db:"avg_response_time_ms" json:"avg_response_time_ms"`
	MinResponseTimeMS int       `db:"min_response_time_ms" json:"min_response_time_ms"`
	MaxResponseTimeMS int       `db:"max_response_time_ms" json:"max_response_time_ms"`
}

// DailyUptimeBucket is the per-day uptime classification for a service.
// Retained 366 days; the period is a fixed constant with no setting to change it.
type DailyUptimeBucket struct {
	ServiceID      string       `db:"service_id" json:"service_id"`
	Date           time.Time    `db:"date" json:"date"`
	Bucket         UptimeBucket `db:"bucket" json:"bucket"`
	TotalChecks    int          `db:"total_checks" json:"total_checks"`
	FailedChecks   int          `db:"failed_checks" json:"failed_checks"`
	ResponseTimeMS int          `db:"response_time_ms" json:"response_time_ms"`
	ErrorMessage   string       `db:"error_message" json:"error_message,omitempty"`
}

// MonitoringSession groups every ProbeResult produced by a single scheduler
// cycle. Not persisted on its own; its ID is carried in the session_id
// column of CheckLog rows.
type MonitoringSession struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Results   []ProbeResult
}

// ProbeResult is the in-memory outcome of probing one service once,
// produced by the prober and consumed by the classifier and persistence
// layer within a single cycle.
type ProbeResult struct {
	ServiceID      string
	SessionID      string
	Status         ServiceStatus
	StatusCode     int
	ResponseTimeMS int
	Attempts       int
	ErrorType      ErrorType
	ErrorMessage   string
	CheckedAt      time.Time
}

// SystemOverallStatus is the maintenance loop's single-value reduction of
// every service's latest DailyUptimeBucket: any mo -> outage, else any po ->
// degraded, else operational.
type SystemOverallStatus string

const (
	OverallStatusOperational SystemOverallStatus = "operational"
	OverallStatusDegraded    SystemOverallStatus = "degraded"
	OverallStatusOutage      SystemOverallStatus = "outage"
)

// SystemStatus is the aggregated snapshot served by GET /status and the
// maintenance loop's periodic summary log line.
type SystemStatus struct {
	GeneratedAt      time.Time              `json:"generated_at"`
	OverallStatus    SystemOverallStatus    `json:"overall_status"`
	Message          string                 `json:"message"`
	TotalServices    int                    `json:"total_services"`
	UpServices       int                    `json:"up_services"`
	DegradedServices int                    `json:"degraded_services"`
	DownServices     int                    `json:"down_services"`
	Services         []ServiceStatusSummary `json:"services"`
}

// ServiceStatusSummary is one Service's contribution to a SystemStatus snapshot.
type ServiceStatusSummary struct {
	ServiceID string        `json:"service_id"`
	Name      string        `json:"name"`
	Status    ServiceStatus `json:"status"`
	LastCheck time.Time     `json:"last_check"`
}
