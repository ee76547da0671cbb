package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/utils"
)

const secret = "test-secret"

type stubResolver map[string]identity.Caller

func (s stubResolver) ByUserID(_ context.Context, id string) (identity.Caller, error) {
	c, ok := s[id]
	if !ok {
		return identity.Caller{}, apperr.Unauthenticated("account not found")
	}
	return c, nil
}

func tokensFor(t *testing.T, id string) (string, string) {
	t.Helper()
	managerID := "M1"
	access, refresh, err := utils.GenerateTokens(&models.UserAuth{ID: id, Username: "ivan", Role: "MPR", ManagerID: &managerID}, secret)
	require.NoError(t, err)
	return access, refresh
}

func protected(t *testing.T) http.Handler {
	resolver := stubResolver{"u1": {UserID: "u1", Username: "ivan", Role: identity.RoleAgent, ManagerID: "M1"}}
	return AuthMiddleware(secret, resolver, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity.CallerFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(caller.ExternalKey()))
	}))
}

func TestAuthMiddleware(t *testing.T) {
	access, refresh := tokensFor(t, "u1")
	unknown, _ := tokensFor(t, "u2")

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"valid bearer", "Bearer " + access, "", http.StatusOK},
		{"query token", "", "?access_token=" + access, http.StatusOK},
		{"missing header", "", "", http.StatusUnauthorized},
		{"malformed header", "Token " + access, "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, "", http.StatusUnauthorized},
		{"bad signature", "Bearer " + access + "x", "", http.StatusUnauthorized},
		{"unknown account", "Bearer " + unknown, "", http.StatusUnauthorized},
	}

	h := protected(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/visits"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "M1", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
