package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"openstays_catalog/internal/adapters/observability"
	"openstays_catalog/internal/app"
)

// RateLimit charges every request to its caller identity before the handler
// runs. A nil limiter disables the check.
func RateLimit(l *app.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := app.ResolveIdentity(CredentialFrom(r.Context()), remoteIP(r))
			d, err := l.Admit(r.Context(), id)
			if err != nil {
				observability.ObserveRateLimit(string(id.Kind), "error")
				writeError(w, r, err)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(d.Reset), 10))
			if !d.Allowed {
				observability.ObserveRateLimit(string(id.Kind), "rejected")
				h.Set("Retry-After", strconv.FormatInt(ceilSeconds(d.RetryAfter), 10))
				writeCode(w, r, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded", nil)
				return
			}
			observability.ObserveRateLimit(string(id.Kind), "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func ceilSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
