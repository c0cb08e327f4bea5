package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJSONEndpointExpr matches the explorer API paths that answer with JSON
// and ignore Range headers.
const DefaultJSONEndpointExpr = `path.contains("/inscription/") || path.contains("/inscriptions") || ` +
	`path.contains("/block/") || path.contains("/sat/") || path.contains("/address/") || ` +
	`path.contains("/output/") || path.contains("/r/")`

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Content   ContentConfig
	Cache     CacheConfig
	Failure   FailureConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
	HandleTTL   time.Duration
}

// ContentConfig describes where content is fetched from
type ContentConfig struct {
	BaseURL          string
	MirrorURL        string
	JSONEndpointExpr string
	FetchTimeout     time.Duration
	// AllowPrivateHosts disables SSRF checks on ad-hoc analyze URLs (local development).
	AllowPrivateHosts bool
}

// CacheConfig holds content cache settings
type CacheConfig struct {
	Backend    string // "memory", "redis" or "postgres"
	MaxEntries int
	SizeMB     int
	DefaultTTL time.Duration
}

// FailureConfig holds failure memo settings
type FailureConfig struct {
	Backend      string // "memory" or "redis"
	PermanentTTL time.Duration
	TemporaryTTL time.Duration
	MaxEntries   int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			HandleTTL:   getEnvDuration("HANDLE_TTL", 5*time.Minute),
		},
		Content: ContentConfig{
			BaseURL:           strings.TrimRight(getEnv("CONTENT_BASE_URL", "https://ordinals.com"), "/"),
			MirrorURL:         strings.TrimRight(getEnv("CONTENT_MIRROR_URL", ""), "/"),
			JSONEndpointExpr:  getEnv("CONTENT_JSON_ENDPOINT_EXPR", DefaultJSONEndpointExpr),
			FetchTimeout:      getEnvDuration("CONTENT_FETCH_TIMEOUT", 30*time.Second),
			AllowPrivateHosts: getEnvBool("CONTENT_ALLOW_PRIVATE_HOSTS", false),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 500),
			SizeMB:     getEnvInt("CACHE_SIZE_MB", 64),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 0),
		},
		Failure: FailureConfig{
			Backend:      getEnv("FAILURE_BACKEND", "memory"),
			PermanentTTL: getEnvDuration("FAILURE_PERMANENT_TTL", 24*time.Hour),
			TemporaryTTL: getEnvDuration("FAILURE_TEMPORARY_TTL", 30*time.Minute),
			MaxEntries:   getEnvInt("FAILURE_MAX_ENTRIES", 10000),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "ordview"),
			User:        getEnv("POSTGRES_USER", "ordview"),
			Password:    getEnv("POSTGRES_PASSWORD", "ordview"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Content.BaseURL == "" {
		return fmt.Errorf("content base URL is required")
	}

	switch c.Cache.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	switch c.Failure.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown failure backend: %s", c.Failure.Backend)
	}

	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max entries must be positive")
	}

	if c.Cache.SizeMB < 1 {
		return fmt.Errorf("cache size must be positive")
	}

	if c.Failure.PermanentTTL <= 0 || c.Failure.TemporaryTTL <= 0 {
		return fmt.Errorf("failure windows must be positive")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	return nil
}

// NeedsRedis reports whether any configured backend talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.Cache.Backend == "redis" || c.Failure.Backend == "redis"
}

// NeedsDatabase reports whether any configured backend talks to Postgres
func (c *Config) NeedsDatabase() bool {
	return c.Cache.Backend == "postgres"
}

// CacheSizeBytes returns the cache byte ceiling
func (c *Config) CacheSizeBytes() int64 {
	return int64(c.Cache.SizeMB) * 1024 * 1024
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
