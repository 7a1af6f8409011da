package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/identity"
	"github.com/spaarke-dev/spaarke-sub016/internal/testutil"
)

func checkRequestWithBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/authz/check", strings.NewReader(body))
	ctx := SetPrincipalInContext(req.Context(), testutil.NewPrincipal().WithSubject("caller-1").Build())
	ctx = SetInboundCredentialInContext(ctx, "inbound-jwt-abc")
	return req.WithContext(ctx)
}

func TestAuthzCheck_Allowed(t *testing.T) {
	var askedRight access.Right
	var askedResource string
	decider := &deciderStub{
		authorizeFunc: func(_ context.Context, p identity.Principal, resourceID string, required access.Right) (access.Decision, error) {
			assert.Equal(t, "caller-1", p.Subject)
			askedResource = resourceID
			askedRight = required
			return access.Decision{Allowed: true}, nil
		},
	}
	h := NewAuthzHandlers(decider, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Check(rec, checkRequestWithBody(t, `{"resource_id":"doc-1","right":"write"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true}`, rec.Body.String())
	assert.Equal(t, "doc-1", askedResource)
	assert.Equal(t, access.RightWrite, askedRight)
}

func TestAuthzCheck_DeniedWithoutReason(t *testing.T) {
	decider := &deciderStub{
		authorizeFunc: func(_ context.Context, _ identity.Principal, _ string, _ access.Right) (access.Decision, error) {
			return access.Decision{Allowed: false, Reason: access.ReasonNoGrant}, nil
		},
	}
	h := NewAuthzHandlers(decider, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Check(rec, checkRequestWithBody(t, `{"resource_id":"doc-1","right":"write"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), string(access.ReasonNoGrant))
}

func TestAuthzCheck_UnknownRight(t *testing.T) {
	h := NewAuthzHandlers(&deciderStub{}, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Check(rec, checkRequestWithBody(t, `{"resource_id":"doc-1","right":"superuser"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestAuthzCheck_MalformedBody(t *testing.T) {
	h := NewAuthzHandlers(&deciderStub{}, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Check(rec, checkRequestWithBody(t, `{"resource_id": unquoted}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestAuthzCheck_UnknownFieldRejected(t *testing.T) {
	h := NewAuthzHandlers(&deciderStub{}, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Check(rec, checkRequestWithBody(t, `{"resource_id":"doc-1","right":"read","caller_id":"someone-else"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code,
		"the caller identity comes from the verified credential, never the body")
}
