package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// AuthorizationDecider decides whether a principal may act on a resource.
// *service.AuthorizationService satisfies it; handlers depend on the behavior
// only.
type AuthorizationDecider interface {
	Authorize(ctx context.Context, p identity.Principal, resourceID string, required access.Right) (access.Decision, error)
}

// CredentialProvider swaps the inbound credential for a delegated downstream
// one. *service.CredentialService satisfies it.
type CredentialProvider interface {
	GetDelegated(ctx context.Context, rawCredential string) (identity.DelegatedCredential, error)
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Authz    AuthorizationDecider
	Creds    CredentialProvider
	Storage  ports.StorageGateway
	Verifier ports.TokenVerifier
	// Readiness probes for /readyz. The permission cache is not probed; a
	// cache outage degrades to direct loads.
	Readiness []ReadinessCheck
	Logger    *slog.Logger
}

// NewRouter creates and configures the HTTP router. Every /api route sits
// behind the Authenticate middleware; the health endpoints stay open.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authzHandlers := NewAuthzHandlers(services.Authz, logger)
	documentHandlers := NewDocumentHandlers(services.Authz, services.Creds, services.Storage, logger)

	authed := Authenticate(services.Verifier, logger)
	registerAuthzRoutes(mux, authzHandlers, authed)
	registerDocumentRoutes(mux, documentHandlers, authed)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Readiness, logger))

	// Recover outermost so panics in the other middleware are still caught;
	// RequestID before Logging so the log line carries the id.
	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAuthzRoutes(mux *http.ServeMux, h *AuthzHandlers, authed func(http.Handler) http.Handler) {
	mux.Handle("POST /api/authz/check", authed(http.HandlerFunc(h.Check)))
}

func registerDocumentRoutes(mux *http.ServeMux, h *DocumentHandlers, authed func(http.Handler) http.Handler) {
	mux.Handle("GET /api/documents/{id}", authed(http.HandlerFunc(h.GetMetadata)))
	mux.Handle("GET /api/documents/{id}/content", authed(http.HandlerFunc(h.Download)))
	mux.Handle("DELETE /api/documents/{id}", authed(http.HandlerFunc(h.Delete)))
}
