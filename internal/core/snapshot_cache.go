package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/metrics"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
)

const snapshotKeyPrefix = "authz:snapshot:"

// SnapshotLoader produces a fresh snapshot from the system of record.
type SnapshotLoader func(ctx context.Context) (access.Snapshot, error)

// SnapshotCacheConfig holds configuration for the shared snapshot cache.
type SnapshotCacheConfig struct {
	// TTL bounds the staleness window after a permission change. Kept short;
	// config sanitization clamps it to five minutes.
	TTL time.Duration

	// SchemaVersion is the operator-controlled key segment. Bumping it
	// invalidates every cached snapshot at once.
	SchemaVersion string
}

// DefaultSnapshotCacheConfig returns a SnapshotCacheConfig with sensible defaults.
func DefaultSnapshotCacheConfig() SnapshotCacheConfig {
	return SnapshotCacheConfig{
		TTL:           2 * time.Minute,
		SchemaVersion: "1",
	}
}

// SnapshotCacheService is the shared, cross-request cache of raw permission
// facts. It stores only snapshot inputs; decisions are never written here.
// On any cache-backend failure it degrades to a miss and loads directly, so a
// cache outage can neither fail the authorization path nor produce a stale
// answer beyond the TTL window.
type SnapshotCacheService struct {
	cache  CacheRepository
	config SnapshotCacheConfig
	logger *slog.Logger
	sink   statsd.Sink
}

// SnapshotCacheServiceOptions bundles dependencies for NewSnapshotCacheService.
type SnapshotCacheServiceOptions struct {
	Cache   CacheRepository
	Config  SnapshotCacheConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewSnapshotCacheService creates a new SnapshotCacheService.
func NewSnapshotCacheService(opts SnapshotCacheServiceOptions) *SnapshotCacheService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSnapshotCacheConfig().TTL
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = DefaultSnapshotCacheConfig().SchemaVersion
	}
	return &SnapshotCacheService{
		cache:  opts.Cache,
		config: cfg,
		logger: logger.With("component", "snapshot_cache"),
		sink:   opts.Metrics,
	}
}

// GetOrLoad returns the cached snapshot for the caller/resource pair, or
// invokes the loader, stores the result, and returns it. Loader errors
// propagate unchanged; cache errors never do. Concurrent misses for the same
// key may both invoke the loader, which is tolerated.
func (s *SnapshotCacheService) GetOrLoad(ctx context.Context, callerID, resourceID string, load SnapshotLoader) (access.Snapshot, error) {
	key := s.snapshotKey(callerID, resourceID)

	data, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			// Caller is gone; this is a cancellation, not a backend fault.
			return access.Snapshot{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "snapshot cache degraded, loading directly", "op", "get", "error", err)
		s.emitCache(metrics.OpDegrade, err)
	case len(data) > 0:
		var snap access.Snapshot
		if uerr := json.Unmarshal(data, &snap); uerr != nil {
			s.logger.WarnContext(ctx, "snapshot cache entry corrupt, loading directly", "error", uerr)
			s.emitCache(metrics.OpDegrade, uerr)
		} else {
			s.emitCache(metrics.OpHit, nil)
			return snap, nil
		}
	default:
		s.emitCache(metrics.OpMiss, nil)
	}

	snap, err := load(ctx)
	if err != nil {
		return access.Snapshot{}, err
	}

	if encoded, merr := json.Marshal(snap); merr != nil {
		s.logger.WarnContext(ctx, "snapshot not cacheable", "error", merr)
	} else if serr := s.cache.Set(ctx, key, encoded, s.config.TTL); serr != nil {
		s.logger.WarnContext(ctx, "snapshot cache degraded, result not stored", "op", "set", "error", serr)
		s.emitCache(metrics.OpDegrade, serr)
	} else {
		s.emitCache(metrics.OpWrite, nil)
	}

	return snap, nil
}

// Invalidate drops the cached snapshot for one caller/resource pair. Called
// after grant changes to cut the staleness window below the TTL.
func (s *SnapshotCacheService) Invalidate(ctx context.Context, callerID, resourceID string) error {
	_, err := s.cache.Delete(ctx, s.snapshotKey(callerID, resourceID))
	return err
}

// snapshotKey builds the versioned cache key for a caller/resource pair.
func (s *SnapshotCacheService) snapshotKey(callerID, resourceID string) string {
	return snapshotKeyPrefix + s.config.SchemaVersion + ":" + callerID + ":" + resourceID
}

func (s *SnapshotCacheService) emitCache(op metrics.CacheOp, err error) {
	metrics.EmitCacheOp(s.sink, metrics.CacheMetric{Cache: metrics.CacheSnapshot, Op: op, Err: err})
}
