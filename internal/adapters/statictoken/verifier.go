// Package statictoken provides a config-driven TokenVerifier for local
// development. It trusts a fixed set of opaque tokens instead of verifying
// signatures; production deployments use the oidc adapter.
package statictoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// Token binds one opaque dev token to a caller.
type Token struct {
	Token   string
	Subject string
	Groups  []string
}

// Config controls the static verifier behavior.
type Config struct {
	Tokens   []Token
	TenantID string        // stamped on every principal; optional
	TTL      time.Duration // principal expiry horizon, default 8h when zero
	Now      func() time.Time
}

// Verifier implements ports.TokenVerifier from a fixed token table.
type Verifier struct {
	byToken  map[string]Token
	tenantID string
	ttl      time.Duration
	now      func() time.Time
}

var _ ports.TokenVerifier = (*Verifier)(nil)

// NewVerifier constructs a static verifier from Config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Tokens) == 0 {
		return nil, errors.New("static auth: at least one token is required")
	}

	byToken := make(map[string]Token, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		if t.Token == "" || t.Subject == "" {
			return nil, errors.New("static auth: token and subject are required")
		}
		if _, dup := byToken[t.Token]; dup {
			return nil, fmt.Errorf("static auth: duplicate token for subject %q", t.Subject)
		}
		byToken[t.Token] = t
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	return &Verifier{
		byToken:  byToken,
		tenantID: cfg.TenantID,
		ttl:      ttl,
		now:      nowFn,
	}, nil
}

// Verify returns the configured principal for a known token. Unknown tokens
// fail exactly like a bad signature would in production.
func (v *Verifier) Verify(_ context.Context, rawToken string) (identity.Principal, error) {
	t, ok := v.byToken[strings.TrimSpace(rawToken)]
	if !ok {
		return identity.Principal{}, fmt.Errorf("unknown token: %w", apperrors.ErrInvalidCredential)
	}

	return identity.Principal{
		Subject:   t.Subject,
		TenantID:  v.tenantID,
		Groups:    append([]string(nil), t.Groups...),
		ExpiresAt: v.now().Add(v.ttl),
	}, nil
}

// ParseTokens parses the AUTH_STATIC_TOKENS format:
// token:subject[:group|group...][;token:subject...]. Blank entries are
// skipped so trailing separators are harmless.
func ParseTokens(spec string) ([]Token, error) {
	var tokens []Token
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("static auth: malformed token entry %q", entry)
		}

		t := Token{
			Token:   strings.TrimSpace(parts[0]),
			Subject: strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			for _, g := range strings.Split(parts[2], "|") {
				if g = strings.TrimSpace(g); g != "" {
					t.Groups = append(t.Groups, g)
				}
			}
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
