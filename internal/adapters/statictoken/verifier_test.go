package statictoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/testutil"
)

func TestNewVerifier_Validation(t *testing.T) {
	_, err := NewVerifier(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one token")

	_, err = NewVerifier(Config{Tokens: []Token{{Token: "t"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token and subject are required")

	_, err = NewVerifier(Config{Tokens: []Token{
		{Token: "t", Subject: "caller-1"},
		{Token: "t", Subject: "caller-2"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate token")
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier(Config{
		Tokens: []Token{
			{Token: "dev-token", Subject: "caller-1", Groups: []string{"finance-team"}},
			{Token: "other-token", Subject: "caller-2"},
		},
		TenantID: "tenant-1",
		TTL:      time.Hour,
		Now:      testutil.FixedTimeFunc(testutil.TestTime()),
	})
	require.NoError(t, err)

	t.Run("known token yields the configured principal", func(t *testing.T) {
		p, err := v.Verify(context.Background(), "dev-token")
		require.NoError(t, err)

		assert.Equal(t, "caller-1", p.Subject)
		assert.Equal(t, "tenant-1", p.TenantID)
		assert.Equal(t, []string{"finance-team"}, p.Groups)
		assert.Equal(t, testutil.TestTime().Add(time.Hour), p.ExpiresAt)
	})

	t.Run("surrounding whitespace is tolerated", func(t *testing.T) {
		p, err := v.Verify(context.Background(), "  other-token ")
		require.NoError(t, err)
		assert.Equal(t, "caller-2", p.Subject)
	})

	t.Run("unknown token is an invalid credential", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredential)
	})
}

func TestParseTokens(t *testing.T) {
	t.Run("full spec", func(t *testing.T) {
		tokens, err := ParseTokens("dev-token:caller-1:finance-team|auditors; other:caller-2 ;")
		require.NoError(t, err)

		require.Len(t, tokens, 2)
		assert.Equal(t, Token{Token: "dev-token", Subject: "caller-1", Groups: []string{"finance-team", "auditors"}}, tokens[0])
		assert.Equal(t, Token{Token: "other", Subject: "caller-2"}, tokens[1])
	})

	t.Run("empty spec yields no tokens", func(t *testing.T) {
		tokens, err := ParseTokens("")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("malformed entries fail", func(t *testing.T) {
		_, err := ParseTokens("just-a-token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed token entry")

		_, err = ParseTokens("token-without-subject:")
		require.Error(t, err)
	})
}
