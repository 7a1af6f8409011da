package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/spaarke-dev/spaarke-sub016/config"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/groups"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/storage"
	"github.com/spaarke-dev/spaarke-sub016/internal/core"
	"github.com/spaarke-dev/spaarke-sub016/internal/data"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	httpx "github.com/spaarke-dev/spaarke-sub016/internal/http"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
	"github.com/spaarke-dev/spaarke-sub016/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Authz         *service.AuthorizationService
	Creds         *service.CredentialService
	Storage       ports.StorageGateway
	Verifier      ports.TokenVerifier
	Readiness     []httpx.ReadinessCheck
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// snapshotSource lifts the grants repository to the snapshot source port.
type snapshotSource struct {
	repo *data.AccessRepo
}

func (s snapshotSource) Load(ctx context.Context, q ports.SnapshotQuery) (access.Snapshot, error) {
	return s.repo.LoadSnapshot(ctx, q.CallerID, q.ResourceID)
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildCacheRepo selects the shared cache backend. Redis is the normal
// production choice; memory serves single-instance and development setups.
//
//nolint:ireturn // both backends must satisfy the cache port.
func buildCacheRepo(
	cfg config.CacheConfig,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) (core.CacheRepository, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		logger.Info("using in-process cache", "capacity", cfg.MemoryCapacity)
		return data.NewMemoryCacheRepo(data.MemoryCacheConfig{Capacity: cfg.MemoryCapacity}), nil
	case config.CacheBackendRedis:
		if redisClient == nil {
			return nil, errors.New("cache backend redis selected but no redis client is configured")
		}
		return data.NewRedisCacheRepo(redisClient), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// NewServicesOptions carries the auth components into service construction.
type NewServicesOptions struct {
	Deps *ServiceDeps
	Auth AuthComponents
}

// NewServices wires repositories, caches, and adapters into the application
// services.
func NewServices(ctx context.Context, opts NewServicesOptions) (ServiceContainer, error) {
	deps := opts.Deps
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	observability := buildObservability(logger, cfg.Observability)

	cacheRepo, err := buildCacheRepo(cfg.Cache, deps.RedisClient, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	// The stored version marker wins over the configured fallback so a bump
	// issued by the admin CLI survives process restarts.
	schemaVersion := core.ResolveSchemaVersion(ctx, cacheRepo, cfg.Cache.SchemaVersion, logger)

	snapshots := core.NewSnapshotCacheService(core.SnapshotCacheServiceOptions{
		Cache: cacheRepo,
		Config: core.SnapshotCacheConfig{
			TTL:           cfg.Cache.SnapshotTTL,
			SchemaVersion: schemaVersion,
		},
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})

	credCache := core.NewCredentialCacheService(core.CredentialCacheServiceOptions{
		Cache: cacheRepo,
		Config: core.CredentialCacheConfig{
			TTLBuffer: cfg.Exchange.TTLBuffer,
			MaxTTL:    cfg.Exchange.MaxTTL,
		},
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})

	directory, err := groups.ParseDirectory(cfg.Authz.GroupRights)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("parse group rights: %w", err)
	}
	logger.Info("group directory loaded", "groups", len(directory.Groups()))

	authz := service.NewAuthorizationService(service.AuthorizationServiceOptions{
		Source:    snapshotSource{repo: data.NewAccessRepo(deps.DB)},
		Snapshots: snapshots,
		Evaluator: access.NewEvaluator(access.DefaultRules(directory)...),
		Logger:    logger,
		Metrics:   observability.MetricsSink,
	})

	creds := service.NewCredentialService(service.CredentialServiceOptions{
		Exchanger: opts.Auth.Exchanger,
		Cache:     credCache,
		Logger:    logger,
		Metrics:   observability.MetricsSink,
	})

	store, err := storage.NewGateway(storage.GatewayConfig{
		BaseURL:    cfg.Storage.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Storage.Timeout},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create storage gateway: %w", err)
	}

	return ServiceContainer{
		Authz:         authz,
		Creds:         creds,
		Storage:       store,
		Verifier:      opts.Auth.Verifier,
		Readiness:     buildReadinessChecks(deps),
		Observability: observability,
	}, nil
}

// buildReadinessChecks probes the dependencies a request cannot proceed
// without. The cache is deliberately absent: a cache outage degrades to
// direct source loads and must not take the service out of rotation.
func buildReadinessChecks(deps *ServiceDeps) []httpx.ReadinessCheck {
	checks := make([]httpx.ReadinessCheck, 0, 1)

	if deps.DB != nil {
		db := deps.DB
		checks = append(checks, httpx.ReadinessCheck{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				return db.PingContext(ctx)
			},
		})
	}

	return checks
}
