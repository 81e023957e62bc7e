package httpserver

import (
	"context"
	"net/http"
	"strings"

	"openstays_catalog/internal/app"
	"openstays_catalog/internal/domain"
)

// ScopeAdminRateLimits guards the rate-limit correction routes.
const ScopeAdminRateLimits = "admin:rate_limits"

// Authenticate resolves X-API-Key or a Bearer token into a credential on the
// request context. Requests with neither pass through anonymously.
func Authenticate(a *app.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := a.Authenticate(r.Context(), r.Header.Get("X-API-Key"), bearerToken(r))
			if err != nil {
				writeError(w, r, err)
				return
			}
			if cred != nil {
				r = r.WithContext(context.WithValue(r.Context(), credentialKey, cred))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CredentialFrom(ctx context.Context) *domain.Credential {
	c, _ := ctx.Value(credentialKey).(*domain.Credential)
	return c
}

// RequireScopes rejects anonymous callers with 401 and callers missing any
// of scopes with 403.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := CredentialFrom(r.Context())
			if c == nil {
				writeCode(w, r, http.StatusUnauthorized, codeAuthRequired, "authentication required", nil)
				return
			}
			if !c.HasScopes(scopes...) {
				writeCode(w, r, http.StatusForbidden, codeInsufficient, "missing scope: "+strings.Join(scopes, " "), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
