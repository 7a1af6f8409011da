package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/metrics"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
)

const credentialKeyPrefix = "authz:obo:"

// HashCredential derives the cache key material for an inbound credential:
// lowercase hex SHA-256, one-way and collision-resistant. Raw credential bytes
// never become cache keys.
func HashCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CredentialCacheConfig holds configuration for the delegated-credential cache.
type CredentialCacheConfig struct {
	// TTLBuffer is subtracted from the credential's remaining lifetime so an
	// entry always expires before the credential it holds.
	TTLBuffer time.Duration

	// MaxTTL caps the entry lifetime regardless of the credential's own
	// expiry.
	MaxTTL time.Duration
}

// DefaultCredentialCacheConfig returns a CredentialCacheConfig with sensible defaults.
func DefaultCredentialCacheConfig() CredentialCacheConfig {
	return CredentialCacheConfig{
		TTLBuffer: 5 * time.Minute,
		MaxTTL:    50 * time.Minute,
	}
}

// CredentialCacheService caches delegated credentials keyed by a hash of the
// inbound credential. Entries are never refreshed in place; a new exchange
// always writes a new entry. Backend failures degrade to a miss, identical to
// the snapshot cache.
type CredentialCacheService struct {
	cache  CacheRepository
	config CredentialCacheConfig
	logger *slog.Logger
	sink   statsd.Sink
	now    func() time.Time
}

// CredentialCacheServiceOptions bundles dependencies for NewCredentialCacheService.
type CredentialCacheServiceOptions struct {
	Cache   CacheRepository
	Config  CredentialCacheConfig
	Logger  *slog.Logger
	Metrics statsd.Sink

	// Now is the clock used for TTL math; defaults to time.Now.
	Now func() time.Time
}

// NewCredentialCacheService creates a new CredentialCacheService.
func NewCredentialCacheService(opts CredentialCacheServiceOptions) *CredentialCacheService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg.TTLBuffer <= 0 {
		cfg.TTLBuffer = DefaultCredentialCacheConfig().TTLBuffer
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = DefaultCredentialCacheConfig().MaxTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CredentialCacheService{
		cache:  opts.Cache,
		config: cfg,
		logger: logger.With("component", "credential_cache"),
		sink:   opts.Metrics,
		now:    now,
	}
}

// Get returns the cached delegated credential for the inbound credential, if
// present and still clear of the expiry safety buffer. Entries inside the
// buffer are discarded even when the backend has not evicted them yet.
func (s *CredentialCacheService) Get(ctx context.Context, rawCredential string) (identity.DelegatedCredential, bool) {
	key := s.credentialKey(rawCredential)

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "credential cache degraded, treating as miss", "op", "get", "error", err)
			s.emitCache(metrics.OpDegrade, err)
		}
		return identity.DelegatedCredential{}, false
	}
	if len(data) == 0 {
		s.emitCache(metrics.OpMiss, nil)
		return identity.DelegatedCredential{}, false
	}

	var cred identity.DelegatedCredential
	if uerr := json.Unmarshal(data, &cred); uerr != nil {
		s.logger.WarnContext(ctx, "credential cache entry corrupt, treating as miss", "error", uerr)
		s.emitCache(metrics.OpDegrade, uerr)
		return identity.DelegatedCredential{}, false
	}

	// Double-check expiry: the TTL should have evicted anything inside the
	// safety buffer already, but a stale entry must never be served past it.
	if !cred.Valid(s.now().Add(s.config.TTLBuffer)) {
		if _, derr := s.cache.Delete(ctx, key); derr != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "expired credential entry not deleted", "error", derr)
		}
		s.emitCache(metrics.OpMiss, nil)
		return identity.DelegatedCredential{}, false
	}

	s.emitCache(metrics.OpHit, nil)
	return cred, true
}

// Put stores a freshly exchanged credential with
// TTL = min(remaining lifetime - buffer, max TTL). Credentials too close to
// expiry are not cached at all. Write failures are logged and swallowed; a
// cache outage must not fail the exchange path.
func (s *CredentialCacheService) Put(ctx context.Context, rawCredential string, cred identity.DelegatedCredential) {
	ttl := s.entryTTL(cred)
	if ttl <= 0 {
		s.logger.DebugContext(ctx, "credential expires too soon to cache",
			"expires_at", cred.ExpiresAt)
		return
	}

	data, err := json.Marshal(cred)
	if err != nil {
		s.logger.WarnContext(ctx, "credential not cacheable", "error", err)
		return
	}
	if serr := s.cache.Set(ctx, s.credentialKey(rawCredential), data, ttl); serr != nil {
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "credential cache degraded, result not stored", "op", "set", "error", serr)
			s.emitCache(metrics.OpDegrade, serr)
		}
		return
	}
	s.emitCache(metrics.OpWrite, nil)
}

// entryTTL computes the cache TTL for a credential, strictly below its real
// expiry.
func (s *CredentialCacheService) entryTTL(cred identity.DelegatedCredential) time.Duration {
	ttl := cred.ExpiresAt.Sub(s.now()) - s.config.TTLBuffer
	if ttl > s.config.MaxTTL {
		ttl = s.config.MaxTTL
	}
	return ttl
}

// credentialKey builds the hashed cache key for an inbound credential.
func (s *CredentialCacheService) credentialKey(rawCredential string) string {
	return credentialKeyPrefix + HashCredential(rawCredential)
}

func (s *CredentialCacheService) emitCache(op metrics.CacheOp, err error) {
	metrics.EmitCacheOp(s.sink, metrics.CacheMetric{Cache: metrics.CacheCredential, Op: op, Err: err})
}
