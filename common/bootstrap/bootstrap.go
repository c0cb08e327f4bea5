package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ordview/ordview/common/cache"
	"github.com/ordview/ordview/common/config"
	"github.com/ordview/ordview/common/db"
	"github.com/ordview/ordview/common/failures"
	"github.com/ordview/ordview/common/logger"
	"github.com/ordview/ordview/common/redis"
	"github.com/ordview/ordview/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		Registry:     prometheus.NewRegistry(),
		cleanupFuncs: make([]func() error, 0),
	}
	components.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"cache_backend", cfg.Cache.Backend,
		"failure_backend", cfg.Failure.Backend,
	)

	// 3. Initialize Redis (only when a backend needs it)
	if cfg.NeedsRedis() && !options.skipRedis {
		components.Logger.Info("connecting to redis", "addr", cfg.RedisAddr())
		components.Redis, err = redis.Dial(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 4. Initialize database (only when a backend needs it)
	if cfg.NeedsDatabase() && !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})
	}

	// 5. Content cache
	store, err := newCacheStore(ctx, components)
	if err != nil {
		components.Shutdown(ctx)
		return nil, err
	}
	components.Cache = cache.NewContentCache(store, components.Logger)
	components.addCleanup(func() error {
		components.Logger.Info("closing content cache")
		return components.Cache.Close()
	})

	// 6. Failure memo
	components.Failures, err = newFailureMemo(components)
	if err != nil {
		components.Shutdown(ctx)
		return nil, err
	}

	// 7. Initialize telemetry (if not skipped)
	if !options.skipTelemetry {
		pprofPort := 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}

		components.Logger.Info("initializing telemetry", "pprof", pprofPort > 0)
		components.Telemetry = telemetry.New(pprofPort, components.Registry, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
		components.addCleanup(components.Telemetry.Close)
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}

// newCacheStore builds the configured backend. Remote backends are fronted by
// a bounded in-memory store.
func newCacheStore(ctx context.Context, c *Components) (cache.Store, error) {
	cfg := c.Config
	front := cache.NewMemoryStore(cfg.Cache.MaxEntries, cfg.CacheSizeBytes())

	switch cfg.Cache.Backend {
	case "memory":
		return front, nil

	case "redis":
		if c.Redis == nil {
			return nil, fmt.Errorf("cache backend redis requires a redis connection")
		}
		return cache.NewTieredStore(front, cache.NewRedisStore(c.Redis, cfg.Cache.DefaultTTL)), nil

	case "postgres":
		if c.DB == nil {
			return nil, fmt.Errorf("cache backend postgres requires a database connection")
		}
		back := cache.NewPostgresStore(c.DB)
		if err := back.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		// Postgres rows have no native expiry; drop stale ones at startup
		if ttl := cfg.Cache.DefaultTTL; ttl > 0 {
			pruned, err := back.DeleteOlderThan(ctx, time.Now().Add(-ttl))
			if err != nil {
				c.Logger.Warn("failed to prune content cache", "error", err)
			} else if pruned > 0 {
				c.Logger.Info("pruned stale cached content", "rows", pruned)
			}
		}
		return cache.NewTieredStore(front, back), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func newFailureMemo(c *Components) (failures.Memo, error) {
	cfg := c.Config
	windows := failures.Windows{
		Permanent: cfg.Failure.PermanentTTL,
		Temporary: cfg.Failure.TemporaryTTL,
	}

	switch cfg.Failure.Backend {
	case "memory":
		return failures.NewMemoryMemo(windows, cfg.Failure.MaxEntries), nil
	case "redis":
		if c.Redis == nil {
			return nil, fmt.Errorf("failure backend redis requires a redis connection")
		}
		return failures.NewRedisMemo(c.Redis, windows, c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown failure backend: %s", cfg.Failure.Backend)
	}
}
