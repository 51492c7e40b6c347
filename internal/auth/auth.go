// Package auth glues HTTP requests to the CMS credential check. The
// application never verifies credentials itself; it forwards the bearer
// token and treats "no valid session" as a hard precondition failure.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nordform/catalog-admin/internal/catalog"
)

// TokenVerifier resolves a bearer token to an operator identity.
// Satisfied by *catalog.Client.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*catalog.Identity, error)
}

type contextKey int

const (
	identityKey contextKey = iota
	tokenKey
)

// Middleware returns middleware that rejects requests without a valid
// bearer session before any handler work happens. On success the
// operator identity and the raw token are stored in the request context.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				slog.Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing bearer token","code":"AUTH_MISSING_TOKEN"}`, http.StatusUnauthorized)
				return
			}

			identity, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				slog.Warn("auth: session rejected",
					"path", r.URL.Path,
					"method", r.Method,
					"error", err,
				)
				http.Error(w, `{"error":"invalid session","code":"AUTH_INVALID_SESSION"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// IdentityFrom returns the authenticated operator for the request, or
// false when the middleware did not run.
func IdentityFrom(ctx context.Context) (*catalog.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*catalog.Identity)
	return id, ok
}

// TokenFrom returns the raw bearer token carried by the request. The
// import pipeline passes it through on every catalog call.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
