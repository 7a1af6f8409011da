package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "load snapshot")

	assert.Equal(t, "load snapshot: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no grants", NotFound("no grants").Error())
}

func TestWrap_NilCauseYieldsNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsConflict(Conflict("x")))
	assert.True(t, IsValidation(Validationf("bad %s", "field")))
	assert.False(t, IsNotFound(Conflict("x")))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestCodePredicates_SeeThroughWrapping(t *testing.T) {
	inner := NotFound("record not found")
	wrapped := fmt.Errorf("load caller: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, ErrCodeNotFound, GetCode(wrapped))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("token endpoint returned 500: %w", ErrExchangeFailed)
	assert.ErrorIs(t, err, ErrExchangeFailed)
	assert.NotErrorIs(t, err, ErrInvalidCredential)

	err = fmt.Errorf("verify bearer: %w", ErrInvalidCredential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
