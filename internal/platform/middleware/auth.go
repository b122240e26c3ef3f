package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"atrium/internal/identity/claims"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*claims.AccessClaims, error)
}

type claimsKey struct{}

// ClaimsFrom retrieves the authenticated claims from the context.
// Only set on requests that passed RequireAuth.
func ClaimsFrom(ctx context.Context) (*claims.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*claims.AccessClaims)
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

// WithClaims binds claims to the context. Exported for handler tests that
// bypass the middleware stack.
func WithClaims(ctx context.Context, c *claims.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// RequireAuth rejects requests without a valid bearer token and binds the
// token's claims to the request context for the layers below.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing bearer token",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w, "Missing bearer token")
				return
			}

			c, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, c)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || after == "" {
		return "", false
	}
	return after, true
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
