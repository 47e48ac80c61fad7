// Package middleware provides HTTP middleware for reportd.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/finsight/reportd/internal/domain/user"
	"github.com/finsight/reportd/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// publicPaths are reachable without credentials.
var publicPaths = map[string]bool{
	"/health":       true,
	"/api/v1/token": true,
}

// Authenticate resolves the caller identity from the Authorization bearer
// token or the X-API-Key header, in that order, and stores it in the request
// context. Requests without a valid credential get 401 with a JSON body.
func Authenticate(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ident, err := auth.Resolve(r.Context(), bearerToken(r), r.Header.Get("X-API-Key"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated caller identity, if any.
func IdentityFromContext(ctx context.Context) (*user.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*user.Identity)
	return ident, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
