package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/statuswatch/statuswatch-core/internal/cache"
	"github.com/statuswatch/statuswatch-core/internal/database"
)

// =============================================================================
// CORE
// Owns the db handle, the endpoint registry, the scheduler, the dispatcher
// and the maintenance loop. Replaces the source's singleton/getInstance
// shape: every component is an explicit constructor argument, wired once at
// startup and handed a single cancellation token for shutdown.
// =============================================================================

// CoreConfig carries the frozen configuration the Core is built from. The
// scheduler's cadence is not part of this struct: it is resolved by the
// registry from MONITORING_INTERVAL and read back via Registry.CycleInterval
// at Start time, so there is exactly one source of truth for it.
type CoreConfig struct {
	DescriptorPath    string
	ServicesYAMLPath  string
	RecognizedIDs     []string
	MaintenanceHour   int
	MaintenanceTick   time.Duration
	DispatcherBaseURL string
	DispatcherEnabled bool
	CacheTTL          time.Duration
}

// Core wires every component named in SYSTEM OVERVIEW into one long-lived
// process.
type Core struct {
	Registry    *Registry
	Repository  *Repository
	Prober      *Prober
	Dispatcher  *IncidentDispatcher
	Scheduler   *Scheduler
	Maintenance *MaintenanceLoop
	Initializer *Initializer
	Views       *Views
	Metrics     *Metrics

	log *logrus.Logger
}

// NewCore assembles a Core from an already-connected pool and an optional
// Redis cache (nil disables the derived-view cache-aside layer).
func NewCore(cfg CoreConfig, pool *database.ConnectionPool, db *sqlx.DB, redisCache cache.Cache, cacheKeys *cache.CacheKeys, log *logrus.Logger) (*Core, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	registry, err := NewRegistry(cfg.DescriptorPath, cfg.ServicesYAMLPath, cfg.RecognizedIDs)
	if err != nil {
		return nil, fmt.Errorf("building endpoint registry: %w", err)
	}

	repository := NewRepository(pool, db)
	prober := NewProber(log)
	dispatcher := NewIncidentDispatcher(cfg.DispatcherBaseURL, cfg.DispatcherEnabled, log)
	metrics := NewMetrics()
	scheduler := NewScheduler(registry, prober, repository, dispatcher, metrics, log)
	maintenance := NewMaintenanceLoop(repository, registry, cfg.MaintenanceHour, log)
	initializer := NewInitializer(repository, log)
	views := NewViews(repository, redisCache, cacheKeys, cfg.CacheTTL)

	return &Core{
		Registry:    registry,
		Repository:  repository,
		Prober:      prober,
		Dispatcher:  dispatcher,
		Scheduler:   scheduler,
		Maintenance: maintenance,
		Initializer: initializer,
		Views:       views,
		Metrics:     metrics,
		log:         log,
	}, nil
}

// Start reconciles the Service dimension, then launches the scheduler and
// maintenance loop as goroutines bound to ctx. Returns once reconciliation
// succeeds; the scheduler/maintenance loops continue running until ctx is
// cancelled. The scheduler's cadence is the registry's resolved
// MONITORING_INTERVAL (Registry.CycleInterval), not a separate setting.
func (c *Core) Start(ctx context.Context, maintenanceTick time.Duration) error {
	if err := c.Initializer.Reconcile(ctx, c.Registry.Load()); err != nil {
		return fmt.Errorf("reconciling services at startup: %w", err)
	}

	go c.Scheduler.Run(ctx, c.Registry.CycleInterval())
	go c.Maintenance.Run(ctx, maintenanceTick)

	return nil
}
