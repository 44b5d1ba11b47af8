package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/platform/auth/jwtverifier"
)

// TokenVerifier validates a bearer token and returns the caller it names.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwtverifier.Principal, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <JWT>.
//
// On success, it stores the authenticated principal (JWT `sub` and `role`) in request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			p, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				Subject: domain.IdentityID(p.Subject),
				Role:    domain.Role(p.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit identity id via X-Debug-Subject and stores it in request context.
// If the header is absent, it falls back to defaultSubject (if provided).
//
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Subject: domain.IdentityID(sub), Role: domain.RoleDriver})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware guards operator endpoints with a shared X-Admin-Token.
// An empty configured token disables the endpoints entirely.
func NewAdminMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin endpoints are disabled", nil)
				return
			}
			got := r.Header.Get("X-Admin-Token")
			if got == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing X-Admin-Token header", nil)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "invalid admin token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
