// Package oidc verifies inbound bearer credentials against the tenant's OIDC
// provider: JWKS signature, expiry, and audience checks, then claim mapping
// into a Principal. It also exposes the discovered token endpoint for the
// credential exchange adapter.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// ProviderConfig holds configuration for the OIDC verifier.
type ProviderConfig struct {
	// IssuerURL is the provider issuer; a trailing discovery-document path is
	// tolerated and trimmed.
	IssuerURL string

	// Audience is the expected aud claim (this API's client ID).
	Audience string

	// GroupsClaim is a JMESPath expression over the raw claims that yields
	// the caller's directory groups (e.g. "groups" or "realm_access.roles").
	// Defaults to "groups".
	GroupsClaim string

	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// Provider implements ports.TokenVerifier using OIDC discovery and JWKS.
type Provider struct {
	provider   *gooidc.Provider
	verifier   *gooidc.IDTokenVerifier
	groupsExpr string
}

var _ ports.TokenVerifier = (*Provider)(nil)

// NewProvider performs issuer discovery once and builds the verifier.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if config.Audience == "" {
		return nil, errors.New("audience is required")
	}

	groupsExpr := config.GroupsClaim
	if groupsExpr == "" {
		groupsExpr = "groups"
	}
	if _, err := jmespath.Compile(groupsExpr); err != nil {
		return nil, fmt.Errorf("invalid groups claim expression %q: %w", groupsExpr, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		provider:   op,
		verifier:   op.Verifier(&gooidc.Config{ClientID: config.Audience}),
		groupsExpr: groupsExpr,
	}, nil
}

// TokenURL returns the token endpoint from the discovered provider metadata.
func (p *Provider) TokenURL() string {
	return p.provider.Endpoint().TokenURL
}

// Verify checks the bearer credential's signature, expiry, and audience, then
// maps its claims to a Principal. All failures wrap
// apperrors.ErrInvalidCredential except context cancellation, which passes
// through untouched.
func (p *Provider) Verify(ctx context.Context, rawToken string) (identity.Principal, error) {
	if strings.TrimSpace(rawToken) == "" {
		return identity.Principal{}, fmt.Errorf("empty bearer token: %w", apperrors.ErrInvalidCredential)
	}

	idToken, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		if ctx.Err() != nil {
			return identity.Principal{}, ctx.Err()
		}
		return identity.Principal{}, fmt.Errorf("verify token: %w: %w", apperrors.ErrInvalidCredential, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return identity.Principal{}, fmt.Errorf("decode claims: %w: %w", apperrors.ErrInvalidCredential, err)
	}

	principal, err := principalFromClaims(claims, p.groupsExpr)
	if err != nil {
		return identity.Principal{}, err
	}
	principal.ExpiresAt = idToken.Expiry
	return principal, nil
}

// principalFromClaims maps raw claims into a Principal. The subject falls
// back from sub to oid (AD app tokens sometimes omit sub); email falls back
// through the AD principal-name claims.
func principalFromClaims(claims map[string]any, groupsExpr string) (identity.Principal, error) {
	p := identity.Principal{
		Subject:  firstNonEmpty(stringClaim(claims, "sub"), stringClaim(claims, "oid")),
		TenantID: stringClaim(claims, "tid"),
		Email:    firstNonEmpty(stringClaim(claims, "email"), stringClaim(claims, "upn"), stringClaim(claims, "unique_name")),
		Name:     stringClaim(claims, "name"),
	}
	if p.Subject == "" {
		return identity.Principal{}, fmt.Errorf("no subject claim: %w", apperrors.ErrInvalidCredential)
	}

	if groupsExpr != "" {
		v, err := jmespath.Search(groupsExpr, claims)
		if err != nil {
			return identity.Principal{}, fmt.Errorf("evaluate groups claim %q: %w", groupsExpr, err)
		}
		p.Groups = stringSlice(v)
	}
	return p, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

// stringSlice coerces a JMESPath result into a group list. Providers emit
// either a JSON array or a single string.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
