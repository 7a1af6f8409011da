package config

import (
	"fmt"
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"spaarke"`
	Password string `env:"PASSWORD"                envDefault:"spaarke"`
	Name     string `env:"NAME"                    envDefault:"spaarke"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	// Pool sizing. The grant tables are small and every query is a point
	// lookup, so the defaults stay modest.
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// Sanitize applies guardrails to pool sizing values.
func (c *DBConfig) Sanitize() {
	if c.MaxOpenConns < 1 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns < 0 {
		c.MaxIdleConns = 5
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheBackend selects the shared cache implementation.
type CacheBackend string

const (
	// CacheBackendRedis shares cache entries across instances.
	CacheBackendRedis CacheBackend = "redis"
	// CacheBackendMemory keeps a per-process cache (single-instance or dev).
	CacheBackendMemory CacheBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for CacheBackend.
func (b *CacheBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "redis", "memory":
		*b = CacheBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CacheBackend: %q (valid options: redis, memory)", v)
	}
}

// CacheConfig contains permission snapshot and credential cache configuration.
type CacheConfig struct {
	// Backend selects redis (shared) or memory (per-process).
	Backend CacheBackend `env:"BACKEND" envDefault:"redis"`

	// SnapshotTTL bounds how stale a cached permission snapshot may get. A
	// revocation takes effect within this window at the latest.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"2m"`

	// SchemaVersion seeds the snapshot key schema version on first start; the
	// stored marker wins afterwards.
	SchemaVersion string `env:"SCHEMA_VERSION" envDefault:"1"`

	// MemoryCapacity is the entry cap when Backend=memory.
	MemoryCapacity int `env:"MEMORY_CAPACITY" envDefault:"4096"`
}

// maxSnapshotTTL is the ceiling on snapshot staleness. Rights revocations must
// propagate inside five minutes no matter what an operator configures.
const maxSnapshotTTL = 5 * time.Minute

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = 2 * time.Minute
	}
	if c.SnapshotTTL > maxSnapshotTTL {
		c.SnapshotTTL = maxSnapshotTTL
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = "1"
	}
	if c.MemoryCapacity < 1 {
		c.MemoryCapacity = 4096
	}
}
