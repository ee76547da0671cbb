package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/utils"
)

// CallerResolver loads the caller behind a token subject
type CallerResolver interface {
	ByUserID(ctx context.Context, userID string) (identity.Caller, error)
}

// AuthMiddleware verifies the access token, resolves the caller and stores
// it in the request context. Websocket clients that cannot set headers may
// pass the token as the access_token query parameter.
func AuthMiddleware(secret string, resolver CallerResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, err)
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				writeError(w, apperr.Unauthenticated("invalid or expired token"))
				return
			}
			userID, isRefresh, err := utils.TokenSubject(claims)
			if err != nil || isRefresh {
				writeError(w, apperr.Unauthenticated("invalid or expired token"))
				return
			}

			caller, err := resolver.ByUserID(r.Context(), userID)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					log.Error("failed to resolve caller", zap.String("user_id", userID), zap.Error(err))
				}
				writeError(w, err)
				return
			}

			ctx := identity.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", apperr.Unauthenticated("authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperr.Unauthenticated("invalid authorization header format")
	}
	return parts[1], nil
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.KindOf(err).StatusCode())
	json.NewEncoder(w).Encode(map[string]string{"error": apperr.PublicMessage(err)})
}
