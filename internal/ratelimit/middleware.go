package ratelimit

import "net/http"

// Middleware rejects requests over the limit. key extracts the limiting key
// (usually the client IP) and reject writes the refusal. A nil limiter
// disables limiting.
func Middleware(l *FixedWindowLimiter, key func(*http.Request) string, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r.Context(), key(r)) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
