package handler

import (
	"net/http"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
)

// SessionHandler reports what the caller's session may do.
type SessionHandler struct{}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// ServeHTTP handles GET /session. Anonymous callers get the signed-out view.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := middleware.GetSnapshot(r.Context())
	response.Success(w, http.StatusOK, toSessionResponse(snap), middleware.GetRequestID(r.Context()))
}
