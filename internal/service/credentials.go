package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/core"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/metrics"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// CredentialServiceOptions groups dependencies for CredentialService.
type CredentialServiceOptions struct {
	Exchanger ports.CredentialExchanger
	Cache     *core.CredentialCacheService // optional
	Logger    *slog.Logger                 // optional
	Metrics   statsd.Sink                  // optional
}

// CredentialService obtains delegated downstream credentials for a caller,
// consulting the credential cache before performing an exchange. It runs
// strictly after authorization; an exchange failure is an upstream fault
// (ErrExchangeFailed), never a denial.
type CredentialService struct {
	exchanger ports.CredentialExchanger
	cache     *core.CredentialCacheService
	logger    *slog.Logger
	sink      statsd.Sink
}

// NewCredentialService constructs a new CredentialService.
func NewCredentialService(opts CredentialServiceOptions) *CredentialService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		exchanger: opts.Exchanger,
		cache:     opts.Cache,
		logger:    logger.With("component", "credentials"),
		sink:      opts.Metrics,
	}
}

// GetDelegated returns a delegated credential for the inbound one: cached if
// a fresh entry exists, otherwise freshly exchanged and cached. Concurrent
// misses for the same credential may both exchange; the spare result is
// simply overwritten. Cancellation passes through unchanged and is not
// counted as an exchange failure.
func (s *CredentialService) GetDelegated(ctx context.Context, rawCredential string) (identity.DelegatedCredential, error) {
	start := time.Now()

	if rawCredential == "" {
		return identity.DelegatedCredential{}, apperrors.Validation("inbound credential is required")
	}

	if s.cache != nil {
		if cred, ok := s.cache.Get(ctx, rawCredential); ok {
			s.emitExchange(metrics.ResultSuccess, true, time.Since(start), nil)
			return cred, nil
		}
	}

	cred, err := s.exchanger.Exchange(ctx, rawCredential)
	if err != nil {
		if ctx.Err() != nil {
			return identity.DelegatedCredential{}, err
		}
		s.logger.WarnContext(ctx, "credential exchange failed", "error", err)
		s.emitExchange(metrics.ResultError, false, time.Since(start), err)
		return identity.DelegatedCredential{}, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, rawCredential, cred)
	}
	s.emitExchange(metrics.ResultSuccess, false, time.Since(start), nil)
	return cred, nil
}

func (s *CredentialService) emitExchange(result string, cached bool, elapsed time.Duration, err error) {
	metrics.EmitExchange(s.sink, metrics.ExchangeMetric{
		Result:   result,
		Cached:   cached,
		Duration: elapsed,
		Err:      err,
	})
}
