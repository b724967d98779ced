package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/utils"
)

// Define a key type for context values to avoid collisions
type contextKey string

const (
	// UserKey is the key used to store the token payload in the request context
	UserKey contextKey = "usuario"
)

// JWTMiddleware verifies the bearer token from the Authorization header and
// stores its payload in the request context.
func JWTMiddleware(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteError(w, r, apperrors.Unauthenticated("Token requerido"))
				return
			}

			// "Bearer <token>"
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				utils.WriteError(w, r, apperrors.Unauthenticated("Formato de token inválido"))
				return
			}

			payload, ok := tokens.Verify(parts[1])
			if !ok {
				utils.WriteError(w, r, apperrors.Unauthenticated("Token inválido o expirado"))
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Usuario returns the authenticated payload stored by JWTMiddleware.
func Usuario(ctx context.Context) (*auth.Payload, bool) {
	p, ok := ctx.Value(UserKey).(*auth.Payload)
	return p, ok && p != nil
}

// UserID returns the authenticated user's id, or 0 outside JWTMiddleware.
func UserID(ctx context.Context) int {
	if p, ok := Usuario(ctx); ok {
		return p.ID
	}
	return 0
}
