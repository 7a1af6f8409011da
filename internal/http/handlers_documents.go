package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// DocumentHandlers proxies document operations to the storage gateway. Every
// handler runs the same gate: authorize the caller for the route's right, then
// exchange the inbound credential for the delegated one. Only the delegated
// credential travels downstream.
type DocumentHandlers struct {
	authz  AuthorizationDecider
	creds  CredentialProvider
	store  ports.StorageGateway
	logger *slog.Logger
}

// NewDocumentHandlers creates handlers for document proxy operations.
func NewDocumentHandlers(authz AuthorizationDecider, creds CredentialProvider, store ports.StorageGateway, logger *slog.Logger) *DocumentHandlers {
	return &DocumentHandlers{authz: authz, creds: creds, store: store, logger: logger}
}

// storageRequest runs the per-route gate and assembles the downstream request.
// A deny writes the concealed 403 and reports false; the reason is already in
// the logs by the time the response goes out.
func (h *DocumentHandlers) storageRequest(w http.ResponseWriter, r *http.Request, required access.Right) (ports.StorageRequest, bool) {
	resourceID := r.PathValue("id")

	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
		return ports.StorageRequest{}, false
	}

	decision, err := h.authz.Authorize(r.Context(), principal, resourceID, required)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return ports.StorageRequest{}, false
	}
	if !decision.Allowed {
		writeNotAuthorized(w)
		return ports.StorageRequest{}, false
	}

	raw, ok := GetInboundCredentialFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
		return ports.StorageRequest{}, false
	}
	cred, err := h.creds.GetDelegated(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return ports.StorageRequest{}, false
	}

	return ports.StorageRequest{ResourceID: resourceID, Credential: cred}, true
}

// GetMetadata handles GET /api/documents/{id}.
func (h *DocumentHandlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	req, ok := h.storageRequest(w, r, access.RightRead)
	if !ok {
		return
	}

	meta, err := h.store.GetMetadata(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, meta)
}

// Download handles GET /api/documents/{id}/content and streams the document
// body to the caller without buffering it.
func (h *DocumentHandlers) Download(w http.ResponseWriter, r *http.Request) {
	req, ok := h.storageRequest(w, r, access.RightRead)
	if !ok {
		return
	}

	content, err := h.store.Download(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer content.Body.Close()

	contentType := content.Metadata.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if content.Metadata.SizeBytes >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Metadata.SizeBytes, 10))
	}
	if !content.Metadata.ModifiedAt.IsZero() {
		w.Header().Set("Last-Modified", content.Metadata.ModifiedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		// Mid-stream failures cannot change the status line; log and stop.
		h.logger.DebugContext(r.Context(), "document stream aborted",
			"resource", req.ResourceID,
			"error", err,
			"request_id", GetRequestIDFromContext(r.Context()))
		return
	}
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.storageRequest(w, r, access.RightDelete)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
