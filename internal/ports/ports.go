// Package ports defines interfaces (hexagonal ports) for authentication,
// permission-fact loading, credential exchange, and downstream storage.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
)

// TokenVerifier verifies an inbound bearer credential and extracts the
// caller's claims. Verification (signature, expiry, audience) happens before
// any cache or rule logic runs.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (identity.Principal, error)
}

// SnapshotQuery carries inputs for loading raw permission facts.
type SnapshotQuery struct {
	CallerID   string
	ResourceID string

	// InboundCredential is optional; sources that apply row-level filtering
	// may need the caller's own credential for the query.
	InboundCredential string
}

// SnapshotSource loads the raw permission facts for one (caller, resource)
// pair from the system of record. Implementations return a fresh immutable
// snapshot on every call; caching happens above this port.
type SnapshotSource interface {
	Load(ctx context.Context, q SnapshotQuery) (access.Snapshot, error)
}

// CredentialExchanger swaps the caller's inbound credential for a short-lived
// delegated downstream credential via an On-Behalf-Of flow. Failures wrap
// apperrors.ErrExchangeFailed.
type CredentialExchanger interface {
	Exchange(ctx context.Context, rawCredential string) (identity.DelegatedCredential, error)
}

// StorageRequest groups parameters for downstream storage calls.
type StorageRequest struct {
	ResourceID string
	Credential identity.DelegatedCredential
}

// DocumentMetadata describes a stored document as reported by the downstream
// storage API.
type DocumentMetadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// DocumentContent is a document body stream plus its metadata. Callers own
// Body and must close it.
type DocumentContent struct {
	Metadata DocumentMetadata
	Body     io.ReadCloser
}

// StorageGateway is the minimal surface of the downstream storage API used by
// the document handlers. Every call presents the delegated credential, never
// the caller's inbound one.
type StorageGateway interface {
	GetMetadata(ctx context.Context, req StorageRequest) (DocumentMetadata, error)
	Download(ctx context.Context, req StorageRequest) (DocumentContent, error)
	Delete(ctx context.Context, req StorageRequest) error
}
