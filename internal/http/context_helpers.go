package httpx

import (
	"context"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
)

// principalKey is an unexported context key type to avoid collisions across
// packages. Centralized in this file so all handlers/middleware use the same
// keys.
type principalKey struct{}

// credentialKey carries the caller's raw inbound credential for the exchange
// path. It never leaves the request context.
type credentialKey struct{}

// requestIDKey carries the request correlation id.
type requestIDKey struct{}

// SetPrincipalInContext returns a child context carrying the authenticated
// principal.
func SetPrincipalInContext(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipalFromContext returns the authenticated principal and a boolean
// indicating presence. Absence means the authentication middleware did not
// run for this route.
func GetPrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(identity.Principal)
	return p, ok
}

// SetInboundCredentialInContext returns a child context carrying the raw
// bearer credential. Handlers pass it to the credential service; it is never
// logged and never sent downstream directly.
func SetInboundCredentialInContext(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, credentialKey{}, raw)
}

// GetInboundCredentialFromContext returns the raw inbound credential and a
// boolean indicating presence.
func GetInboundCredentialFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(credentialKey{}).(string)
	return raw, ok && raw != ""
}

// SetRequestIDInContext returns a child context carrying the request id.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestIDFromContext returns the request id, or an empty string when the
// middleware did not run.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
