package cache

import (
	"context"
	"strconv"
	"time"
)

// =============================================================================
// ISP-COMPLIANT CACHE INTERFACES
// Each interface is small and focused on a single responsibility
// =============================================================================

// CacheReader handles cache read operations
type CacheReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheWriter handles cache write operations
type CacheWriter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheInvalidator handles cache invalidation
type CacheInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
	Flush(ctx context.Context) error
}

// Cache combines read and write operations (full cache interface)
type Cache interface {
	CacheReader
	CacheWriter
	CacheInvalidator
}

// =============================================================================
// CACHE CONFIGURATION
// =============================================================================

// CacheConfig holds cache configuration
type CacheConfig struct {
	// Default TTL for derived-view reader results (uptime %, SLA compliance,
	// monthly grid, trend). These are recomputed from potentially large table
	// scans, so a short TTL trades a little staleness for a lot less load.
	ViewTTL time.Duration `json:"view_ttl"`

	// Redis settings
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Key prefixes
	KeyPrefix string `json:"key_prefix"` // Default: "statusmon:"
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		ViewTTL:   30 * time.Second,
		RedisAddr: "redis:6379",
		RedisDB:   0,
		KeyPrefix: "statusmon:",
	}
}

// =============================================================================
// CACHE KEY HELPERS
// =============================================================================

// CacheKeys provides standardized cache key generation for the derived-view
// readers in internal/monitoring.
type CacheKeys struct {
	prefix string
}

// NewCacheKeys creates a new CacheKeys helper
func NewCacheKeys(prefix string) *CacheKeys {
	return &CacheKeys{prefix: prefix}
}

// UptimePercentage returns the key for a service's uptime percentage over a window.
func (k *CacheKeys) UptimePercentage(serviceID string, days int) string {
	return k.prefix + "uptime:" + serviceID + ":" + strconv.Itoa(days)
}

// MonthlyGrid returns the key for a service's monthly availability grid.
func (k *CacheKeys) MonthlyGrid(serviceID string, months int) string {
	return k.prefix + "grid:" + serviceID + ":" + strconv.Itoa(months)
}

// ServiceHistory returns the key for a service's raw response-time history export.
func (k *CacheKeys) ServiceHistory(serviceID string, days int) string {
	return k.prefix + "history:" + serviceID + ":" + strconv.Itoa(days)
}

// SLACompliance returns the key for a service's SLA compliance report.
func (k *CacheKeys) SLACompliance(serviceID string, days int) string {
	return k.prefix + "sla:" + serviceID + ":" + strconv.Itoa(days)
}

// Trend returns the key for a service's uptime trend.
func (k *CacheKeys) Trend(serviceID string, days int) string {
	return k.prefix + "trend:" + serviceID + ":" + strconv.Itoa(days)
}

// SystemStatus returns the key for the system-wide status snapshot.
func (k *CacheKeys) SystemStatus() string {
	return k.prefix + "system:status"
}
