package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mxkrv/novellib-backend/internal/models"
)

// ClaimsProvider реализуется SessionService.
type ClaimsProvider interface {
	GetClaimsForRequest(ctx context.Context, accessToken string) (*models.AccessTokenClaims, error)
}

func AuthMiddleware(provider ClaimsProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "authorization header missing", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := provider.GetClaimsForRequest(r.Context(), parts[1])
			if err != nil {
				// Причину отказа не раскрываем.
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
			ctx = context.WithValue(ctx, "user_login", claims.Login)
			ctx = context.WithValue(ctx, "user_role", claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
