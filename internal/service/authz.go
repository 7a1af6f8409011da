package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/core"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/metrics"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
	"github.com/spaarke-dev/spaarke-sub016/internal/reqcache"
)

// AuthorizationServiceOptions groups dependencies for AuthorizationService.
type AuthorizationServiceOptions struct {
	Source    ports.SnapshotSource
	Snapshots *core.SnapshotCacheService
	Evaluator *access.Evaluator
	Logger    *slog.Logger // optional
	Metrics   statsd.Sink  // optional
}

// AuthorizationService decides whether a caller may act on a resource. It
// resolves the permission snapshot through the request cache, then the shared
// snapshot cache, then the system of record, and runs the rule evaluator on
// the result. Decisions are computed fresh on every call and never stored
// anywhere.
type AuthorizationService struct {
	source    ports.SnapshotSource
	snapshots *core.SnapshotCacheService
	evaluator *access.Evaluator
	logger    *slog.Logger
	sink      statsd.Sink
}

// NewAuthorizationService constructs a new AuthorizationService.
func NewAuthorizationService(opts AuthorizationServiceOptions) *AuthorizationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		source:    opts.Source,
		snapshots: opts.Snapshots,
		evaluator: opts.Evaluator,
		logger:    logger.With("component", "authz"),
		sink:      opts.Metrics,
	}
}

// Authorize reports whether the principal holds the required right on the
// resource. A deny is a valid Decision, not an error; errors mean the facts
// could not be obtained (source failure wraps ErrSourceUnavailable,
// cancellation passes through unchanged). The denial reason is logged here
// with the caller, resource, and right; callers at the HTTP boundary conceal
// it.
func (s *AuthorizationService) Authorize(ctx context.Context, p identity.Principal, resourceID string, required access.Right) (access.Decision, error) {
	start := time.Now()

	if p.Subject == "" {
		return access.Decision{}, apperrors.Validation("caller subject is required")
	}
	if resourceID == "" {
		return access.Decision{}, apperrors.Validation("resource id is required")
	}

	snap, err := s.snapshot(ctx, p.Subject, resourceID)
	if err != nil {
		return access.Decision{}, err
	}

	decision := s.evaluator.Decide(snap, required)
	s.logDecision(ctx, p.Subject, resourceID, required, decision)
	s.emitDecision(decision, time.Since(start))
	return decision, nil
}

// snapshot resolves the permission facts for a caller/resource pair. Within a
// request the first resolution is memoized, so repeated checks (middleware
// plus handler) see identical facts even if the shared cache evicts in
// between.
func (s *AuthorizationService) snapshot(ctx context.Context, callerID, resourceID string) (access.Snapshot, error) {
	key := reqcache.Key(callerID, resourceID)
	rc, memoized := reqcache.FromContext(ctx)
	if memoized {
		if snap, ok := rc.Get(key); ok {
			return snap, nil
		}
	}

	snap, err := s.snapshots.GetOrLoad(ctx, callerID, resourceID, func(ctx context.Context) (access.Snapshot, error) {
		return s.load(ctx, callerID, resourceID)
	})
	if err != nil {
		return access.Snapshot{}, err
	}

	if memoized {
		rc.Set(key, snap)
	}
	return snap, nil
}

// load queries the system of record directly.
func (s *AuthorizationService) load(ctx context.Context, callerID, resourceID string) (access.Snapshot, error) {
	snap, err := s.source.Load(ctx, ports.SnapshotQuery{CallerID: callerID, ResourceID: resourceID})
	if err != nil {
		if ctx.Err() != nil {
			return access.Snapshot{}, ctx.Err()
		}
		return access.Snapshot{}, fmt.Errorf("load permission facts: %w: %w", apperrors.ErrSourceUnavailable, err)
	}
	return snap, nil
}

func (s *AuthorizationService) logDecision(ctx context.Context, callerID, resourceID string, required access.Right, d access.Decision) {
	if d.Allowed {
		s.logger.DebugContext(ctx, "authorization allowed",
			"caller", callerID,
			"resource", resourceID,
			"right", required.String())
		return
	}
	s.logger.InfoContext(ctx, "authorization denied",
		"caller", callerID,
		"resource", resourceID,
		"right", required.String(),
		"reason", string(d.Reason))
}

func (s *AuthorizationService) emitDecision(d access.Decision, elapsed time.Duration) {
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny"
	}
	metrics.EmitDecision(s.sink, metrics.DecisionMetric{
		Outcome:  outcome,
		Reason:   string(d.Reason),
		Duration: elapsed,
	})
}
