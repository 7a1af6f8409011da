package httpx

import (
	"log/slog"
	"net/http"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
)

type checkRequest struct {
	ResourceID string `json:"resource_id"`
	Right      string `json:"right"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// AuthzHandlers serves the authorization probe endpoint.
type AuthzHandlers struct {
	authz  AuthorizationDecider
	logger *slog.Logger
}

// NewAuthzHandlers creates handlers for authorization probes.
func NewAuthzHandlers(authz AuthorizationDecider, logger *slog.Logger) *AuthzHandlers {
	return &AuthzHandlers{authz: authz, logger: logger}
}

// Check reports whether the calling principal holds the requested right on a
// resource. The answer is a bare boolean; the reason behind a deny stays in
// the server logs.
func (h *AuthzHandlers) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	right, err := access.ParseRight(req.Right)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
		return
	}

	decision, err := h.authz.Authorize(r.Context(), principal, req.ResourceID, right)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, checkResponse{Allowed: decision.Allowed})
}
