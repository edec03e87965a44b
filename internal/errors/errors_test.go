package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/verve/internal/errors"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperrors.AppError
		code   string
		status int
	}{
		{"not found", apperrors.NewNotFoundError("set", 7), apperrors.ErrCodeNotFound, http.StatusNotFound},
		{"validation", apperrors.NewValidationError("quality", "must be 0..5"), apperrors.ErrCodeValidation, http.StatusBadRequest},
		{"internal", apperrors.NewInternalError(fmt.Errorf("boom")), apperrors.ErrCodeInternal, http.StatusInternalServerError},
		{"bad request", apperrors.NewBadRequestError("bad json"), apperrors.ErrCodeBadRequest, http.StatusBadRequest},
		{"conflict", apperrors.NewConflictError("busy", nil), apperrors.ErrCodeConflict, http.StatusConflict},
		{"too large", apperrors.NewTooLargeError(10), apperrors.ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Contains(t, tt.err.Error(), tt.code)
		})
	}
}

func TestAs_UnwrapsChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	wrapped := fmt.Errorf("saving card: %w", apperrors.NewInternalError(cause))

	appErr, ok := apperrors.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = apperrors.As(cause)
	assert.False(t, ok)
}
