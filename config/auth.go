package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the inbound credential verification mode.
type AuthMode string

const (
	// AuthModeOIDC verifies bearer tokens against the provider's JWKS.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeStatic trusts a configured token table (for development only).
	AuthModeStatic AuthMode = "static"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "static":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, static)", v)
	}
}

// OIDCConfig contains provider discovery and verification configuration.
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer; discovery and JWKS come from it.
	IssuerURL string `env:"ISSUER_URL"`

	// Audience is the aud claim this API accepts (its own client id).
	Audience string `env:"AUDIENCE"`

	// GroupsClaim is a JMESPath expression over the raw token claims that
	// yields the caller's directory groups. Providers differ: plain "groups"
	// for Azure AD, "realm_access.roles" for Keycloak.
	GroupsClaim string `env:"GROUPS_CLAIM" envDefault:"groups"`
}

// StaticAuthConfig controls the dev-mode verifier identity table.
// Used when AUTH_MODE=static for development and testing.
type StaticAuthConfig struct {
	// Tokens is a semicolon-separated table of
	// token:subject:group|group entries.
	Tokens   string        `env:"TOKENS"`
	TenantID string        `env:"TENANT_ID" envDefault:"dev-tenant"`
	TTL      time.Duration `env:"TTL"       envDefault:"8h"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential verifier to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"AUTH_OIDC_"`

	// Static configuration (used when Mode=static).
	Static StaticAuthConfig `envPrefix:"AUTH_STATIC_"`
}
