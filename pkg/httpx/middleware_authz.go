package httpx

import (
	"context"
	"net/http"
)

// AuthorizeFunc decides whether the authenticated subject may act at the
// required role. Implementations typically re-check the user record rather
// than trusting the token's role claim.
type AuthorizeFunc func(ctx context.Context, userID, requiredRole string) error

// RequireRole gates a handler behind a minimum role. Must run inside
// AuthnMiddleware so the subject is already in the context.
func RequireRole(required string, authorize AuthorizeFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok || userID == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			if err := authorize(r.Context(), userID, required); err != nil {
				writeRoleError(w, required)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for insufficient privilege.
func writeRoleError(w http.ResponseWriter, required string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="role:`+required+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_role"))
}
