package middleware

import (
	"net/http"
)

// RequireScope returns middleware that checks API key scopes. Admin
// token requests pass through; a key with no scopes grants everything.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := APIKeyFromContext(r.Context())
			if key == nil {
				// Not an API key request (admin token or auth disabled).
				next.ServeHTTP(w, r)
				return
			}

			if !key.HasScope(scope) {
				http.Error(w, `{"error":"insufficient scope"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
