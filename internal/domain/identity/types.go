// Package identity contains domain-level types for the authenticated caller
// and delegated downstream credentials. It is pure and free of
// framework/adapter concerns.
package identity

import "time"

// Principal represents the verified claims of an inbound caller.
// Adapters map provider-specific claims into this shape. The raw bearer
// credential is deliberately not a field: it travels separately so principals
// can be logged without leaking credentials.
type Principal struct {
	Subject   string // stable caller identifier (sub, falling back to oid)
	TenantID  string // isolation claim in multi-tenant deployments (tid)
	Email     string
	Name      string
	Groups    []string
	ExpiresAt time.Time // absolute expiry of the inbound credential
}

// Expired reports whether the principal's inbound credential has expired.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// DelegatedCredential is a short-lived downstream credential obtained through
// an On-Behalf-Of exchange. A new exchange always produces a new value;
// credentials are never refreshed in place.
type DelegatedCredential struct {
	Token     string    `json:"delegated_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the credential can still be presented downstream at
// the given instant.
func (c DelegatedCredential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}
