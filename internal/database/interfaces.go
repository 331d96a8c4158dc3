package database

import (
	"context"
	"time"
)

// =============================================================================
// ISP-COMPLIANT DATABASE INTERFACES
// Each interface is small and focused on a single responsibility
// Enables easy mocking, testing, and future optimizations
// =============================================================================

// -----------------------------------------------------------------------------
// Core Query Interfaces
// -----------------------------------------------------------------------------

// QueryExecutor executes database queries (read operations)
type QueryExecutor interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) Scanner
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
}

// CommandExecutor executes database commands (write operations)
type CommandExecutor interface {
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
}

// TransactionExecutor combines query and command execution
type TransactionExecutor interface {
	QueryExecutor
	CommandExecutor
}

// Scanner wraps database row scanning
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows wraps database result rows
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Result wraps command execution result
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// -----------------------------------------------------------------------------
// Transaction Interfaces
// -----------------------------------------------------------------------------

// TransactionManager manages database transactions
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
	BeginReadOnly(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction interface
type Tx interface {
	TransactionExecutor
	Commit() error
	Rollback() error
}

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(tx Tx) error

// -----------------------------------------------------------------------------
// Health & Metrics Interfaces
// -----------------------------------------------------------------------------

// HealthChecker checks database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	Ping(ctx context.Context) error
}

// MetricsProvider provides database connection and query metrics
type MetricsProvider interface {
	GetPoolStats() PoolStats
	GetQueryStats() QueryStats
}

// QueryStats tracks query performance
type QueryStats struct {
	TotalQueries     int64
	SlowQueries      int64 // > 100ms
	FailedQueries    int64
	AvgQueryTimeMs   float64
	MaxQueryTimeMs   float64
	QueriesPerSecond float64
}

// -----------------------------------------------------------------------------
// Cache Interface
// -----------------------------------------------------------------------------

// QueryCache caches frequently accessed data
type QueryCache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}

// CachedReader wraps a reader with caching
type CachedReader interface {
	WithCache(cache QueryCache) CachedReader
	InvalidateCache(keys ...string)
}
