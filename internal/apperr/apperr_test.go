package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("upsert: %w", Permission("visit is completed"))

	assert.Equal(t, KindPermission, KindOf(err))
	assert.True(t, Is(err, KindPermission))
	assert.False(t, Is(err, KindValidation))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", Validation("clientINN is required"), http.StatusBadRequest, "clientINN is required"},
		{"permission", Permission("forbidden"), http.StatusForbidden, "forbidden"},
		{"not found", NotFound("visit %s not found", "v1"), http.StatusNotFound, "visit v1 not found"},
		{"conflict", Conflict("duplicate"), http.StatusConflict, "duplicate"},
		{"too large", TooLarge("photo exceeds %d bytes", 10), http.StatusRequestEntityTooLarge, "photo exceeds 10 bytes"},
		{"unauthenticated", Unauthenticated("missing token"), http.StatusUnauthorized, "missing token"},
		{"internal hides cause", Internal(errors.New("pq: connection refused"), "db down"), http.StatusInternalServerError, "internal server error"},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := ToHTTPError(tt.err)
			assert.Equal(t, tt.code, httperror.GetStatusCode(httpErr))
			assert.Contains(t, httpErr.Error(), tt.message)
			assert.NotContains(t, httpErr.Error(), "pq:")
			assert.NotContains(t, httpErr.Error(), "secret")
		})
	}
}
