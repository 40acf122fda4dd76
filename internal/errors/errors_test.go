package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewProcessingError("save failed", cause)

	assert.Equal(t, "save failed: disk full", err.Error())
	assert.Equal(t, "PROCESSING_ERROR", err.Code)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "bad input", NewValidationError("bad input", nil).Error())
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("x", nil), IsValidationError},
		{"not found", NewNotFoundError("x", nil), IsNotFoundError},
		{"unauthorized", NewUnauthorizedError("x", nil), IsUnauthorizedError},
		{"forbidden", NewForbiddenError("x", nil), IsForbiddenError},
		{"conflict", NewConflictError("x", nil), IsConflictError},
		{"timeout", NewTimeoutError("x", nil), IsTimeoutError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("handler: %w", tt.err)))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestTypeOf(t *testing.T) {
	typ, ok := TypeOf(fmt.Errorf("wrapped: %w", NewUpstreamError("gemini", nil)))
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeUpstream, typ)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)

	assert.Equal(t, "SERVICE_UNAVAILABLE", NewUnavailableError("x", nil).Code)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored", ErrorTypeError))

	plain := WrapError(errors.New("io"), "load users", ErrorTypeError)
	typ, _ := TypeOf(plain)
	assert.Equal(t, ErrorTypeError, typ)

	inner := NewNotFoundError("User not found", nil)
	wrapped := WrapError(inner, "delete", ErrorTypeError)
	assert.True(t, IsNotFoundError(wrapped), "wrapping keeps the inner type")
	assert.Contains(t, wrapped.Error(), "delete: User not found")
}
