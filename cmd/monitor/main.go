package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"

	"github.com/statuswatch/statuswatch-core/internal/api"
	"github.com/statuswatch/statuswatch-core/internal/cache"
	"github.com/statuswatch/statuswatch-core/internal/config"
	"github.com/statuswatch/statuswatch-core/internal/database"
	"github.com/statuswatch/statuswatch-core/internal/monitoring"
)

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := loadConfig()

	db, err := database.New(cfg.database)
	if err != nil {
		log.WithError(err).Fatal("connecting to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.migrationsPath); err != nil {
		log.WithError(err).Fatal("running database migrations")
	}

	log.WithField("stats", db.GetStats()).Info("database connection pool ready")

	sqlxDB := sqlx.NewDb(db.Pool.DB(), "postgres")

	var redisCache cache.Cache
	var cacheKeys *cache.CacheKeys
	redisCacheImpl, err := cache.NewRedisCache(cfg.cache)
	if err != nil {
		log.WithError(err).Warn("connecting to redis, derived views will recompute every request")
	} else {
		defer redisCacheImpl.Close()
		redisCache = redisCacheImpl
		cacheKeys = cache.NewCacheKeys(cfg.cache.KeyPrefix)
	}

	core, err := monitoring.NewCore(cfg.core, db.Pool, sqlxDB, redisCache, cacheKeys, log)
	if err != nil {
		log.WithError(err).Fatal("assembling monitoring core")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := core.Start(ctx, cfg.core.MaintenanceTick); err != nil {
		log.WithError(err).Fatal("starting monitoring core")
	}

	statusHandlers := api.NewStatusHandlers(core.Views, core.Repository, core.Scheduler)
	server := api.NewServer(fmt.Sprintf(":%s", cfg.port), cfg.releaseMode, statusHandlers, core.Metrics.Handler())

	go func() {
		log.WithField("addr", server.Addr()).Info("status API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("status API server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("status API server forced to shutdown")
		os.Exit(1)
	}

	log.Info("exited cleanly")
}

type appConfig struct {
	database       *database.Config
	cache          *cache.CacheConfig
	core           monitoring.CoreConfig
	migrationsPath string
	port           string
	releaseMode    bool
}

func loadConfig() appConfig {
	return appConfig{
		database: &database.Config{
			Host:     config.GetEnv("DB_HOST", "localhost"),
			Port:     config.GetEnvInt("DB_PORT", 5432),
			Database: config.GetEnv("DB_NAME", "statusmon"),
			Username: config.GetEnv("DB_USER", "statusmon"),
			Password: config.GetEnv("DB_PASSWORD", "dev_password"),
			SSLMode:  config.GetEnv("DB_SSLMODE", "disable"),
			MaxConns: config.GetEnvInt("DB_MAX_CONNS", 25),
			MinConns: config.GetEnvInt("DB_MIN_CONNS", 5),
		},
		cache: &cache.CacheConfig{
			ViewTTL:       config.GetEnvDuration("CACHE_VIEW_TTL", 30*time.Second),
			RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
			RedisDB:       config.GetEnvInt("REDIS_DB", 0),
			KeyPrefix:     config.GetEnv("CACHE_KEY_PREFIX", "statusmon:"),
		},
		core: monitoring.CoreConfig{
			DescriptorPath:    config.GetEnv("SERVICE_DESCRIPTOR_PATH", "services.env"),
			ServicesYAMLPath:  config.GetEnv("SERVICE_OVERRIDES_PATH", "services.yaml"),
			RecognizedIDs:     config.GetEnvSlice("RECOGNIZED_SERVICE_IDS", nil),
			MaintenanceHour:   config.GetEnvInt("MAINTENANCE_HOUR_UTC", 3),
			MaintenanceTick:   config.GetEnvDuration("MAINTENANCE_TICK", 15*time.Minute),
			DispatcherBaseURL: config.GetEnv("MONITOR_API_URL", ""),
			DispatcherEnabled: config.GetEnvBool("ENABLE_AUTO_INCIDENT_DETECTION", false),
			CacheTTL:          config.GetEnvDuration("CACHE_VIEW_TTL", 30*time.Second),
		},
		migrationsPath: config.GetEnv("MIGRATIONS_PATH", "migrations"),
		port:           config.GetEnv("PORT", "8080"),
		releaseMode:    config.GetEnv("ENVIRONMENT", "development") == "production",
	}
}
