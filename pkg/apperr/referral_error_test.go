package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", ValidationFailed("bad"), http.StatusBadRequest},
		{"missing fields", MissingFields("title"), http.StatusBadRequest},
		{"duplicate email", DuplicateEmail(), http.StatusBadRequest},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized},
		{"forbidden", Forbidden(""), http.StatusForbidden},
		{"not found", NotFound("referral"), http.StatusNotFound},
		{"internal", Internal("save", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
			assert.Equal(t, tt.want, GetHTTPStatus(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestInternalDoesNotLeakCause(t *testing.T) {
	cause := errors.New("connection refused 10.0.0.7:27017")
	err := Internal("find user", cause)

	assert.NotContains(t, err.Message, "10.0.0.7")
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("register: %w", DuplicateEmail())

	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestAsAppError_WrapsPlainErrors(t *testing.T) {
	appErr := AsAppError(errors.New("plain"))

	assert.Equal(t, CodeInternalError, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.False(t, IsAppError(errors.New("plain")))
	assert.True(t, IsAppError(NotFound("user")))
}
