package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_RetryableByCode(t *testing.T) {
	t.Parallel()
	assert.True(t, NewError(ErrNoEligibleAgent, "none").Retryable)
	assert.True(t, NewError(ErrNoResponse, "silence").Retryable)
	assert.True(t, NewError(ErrMailboxFull, "full").Retryable)
	assert.False(t, NewError(ErrNotFound, "missing").Retryable)
	assert.False(t, NewError(ErrInvalidTransition, "bad").Retryable)
}

func TestError_ErrorString(t *testing.T) {
	t.Parallel()
	err := NewError(ErrNotFound, "agent a1 not found")
	assert.Equal(t, "[NOT_FOUND] agent a1 not found", err.Error())

	cause := errors.New("boom")
	assert.Equal(t, "[NOT_FOUND] agent a1 not found: boom", err.WithCause(cause).Error())
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("root")
	err := NewError(ErrStoreClosed, "closed").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsCode_WrappedError(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("distribute: %w", NewError(ErrNoEligibleAgent, "no capable agent"))
	require.True(t, IsCode(err, ErrNoEligibleAgent))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrNoEligibleAgent, GetErrorCode(err))
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
