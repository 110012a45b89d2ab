// Package middleware provides HTTP middlewares for authentication, rate
// limiting and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/gophlogin/internal/service"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Claims, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer"
// token. On success the token claims are stored in the request context
// for ClaimsFromContext and GetUserIDFromContext.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gophlogin"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// ClaimsFromContext returns the claims stored by BearerAuth, or nil.
func ClaimsFromContext(ctx context.Context) *service.Claims {
	c, _ := ctx.Value(claimsKey).(*service.Claims)
	return c
}

// GetUserIDFromContext extracts the authenticated user ID from the
// request context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID()
	}
	return ""
}
