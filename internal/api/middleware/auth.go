package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/session"
)

const (
	sessionKey  contextKey = "session"
	snapshotKey contextKey = "snapshot"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// SessionLookup finds live client sessions.
type SessionLookup interface {
	Get(id uuid.UUID) (*session.Session, bool)
}

// Authenticate resolves an optional "Authorization: Bearer" token to the
// client session it names and stores the session and its snapshot in the
// request context. Requests without the header pass through anonymously; a
// header that does not name a live session signed in as the token's subject
// is rejected with 401.
//
// If the session is still resolving, the request waits up to resolveTimeout
// for it to settle. The snapshot stored is whatever the session holds then.
func Authenticate(tokens TokenParser, sessions SessionLookup, resolveTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must be a bearer token", requestID)
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", requestID)
				return
			}

			sess, ok := sessions.Get(claims.SessionID)
			if !ok {
				response.Err(w, http.StatusUnauthorized, "SESSION_ENDED", "Session has ended, sign in again", requestID)
				return
			}
			if cur := sess.Client.Current(); cur == nil || cur.ID != claims.UserID {
				response.Err(w, http.StatusUnauthorized, "SESSION_ENDED", "Session has ended, sign in again", requestID)
				return
			}

			waitCtx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
			snap, _ := sess.Manager.Await(waitCtx)
			cancel()

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = context.WithValue(ctx, snapshotKey, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that carry no client session with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession returns the client session of the request, or nil.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// GetSnapshot returns the session snapshot taken when the request was
// authenticated. Anonymous requests get the signed-out snapshot.
func GetSnapshot(ctx context.Context) session.Snapshot {
	if s, ok := ctx.Value(snapshotKey).(session.Snapshot); ok {
		return s
	}
	return session.Snapshot{}
}

// WithSnapshot returns a context carrying sess and snap, as Authenticate
// would store them.
func WithSnapshot(ctx context.Context, sess *session.Session, snap session.Snapshot) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return context.WithValue(ctx, snapshotKey, snap)
}
