package middleware

import (
	"net/http"

	"github.com/daap14/caseentry/internal/access"
	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/session"
)

// RequireApproved lets through sessions whose profile is approved.
func RequireApproved() func(http.Handler) http.Handler {
	return require(access.CanSubmitRecords, "Account is awaiting approval")
}

// RequireAdmin lets through sessions whose profile has the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return require(access.CanAdminister, "Admin access required")
}

func require(allowed func(session.Snapshot) bool, denied string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			if GetSession(r.Context()) == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			snap := GetSnapshot(r.Context())
			switch {
			case snap.Resolving:
				w.Header().Set("Retry-After", "1")
				response.Err(w, http.StatusServiceUnavailable, "SESSION_RESOLVING", "Session is still loading", requestID)
				return
			case snap.Identity == nil:
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in", requestID)
				return
			case !allowed(snap):
				response.Err(w, http.StatusForbidden, "FORBIDDEN", denied, requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
