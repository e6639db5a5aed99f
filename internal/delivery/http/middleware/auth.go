package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/storefront-plugins/product-reviews/internal/delivery/http/response"
	"github.com/storefront-plugins/product-reviews/internal/pkg/auth"
)

type claimsContextKey struct{}

// Auth returns a middleware that verifies the bearer token and requires
// the given scope. Verified claims are stored in the request context.
func Auth(tokens *auth.TokenService, scope auth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Error(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if claims.Scope != scope {
				response.Error(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified claims stored by Auth
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims, ok
}

// WithClaims returns a context carrying the given claims, as Auth would
// produce after verification
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}
