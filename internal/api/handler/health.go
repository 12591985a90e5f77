package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
)

// DBPinger checks database reachability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many client sessions are live.
type SessionCounter interface {
	Len() int
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db       DBPinger
	sessions SessionCounter
	version  string
}

// NewHealthHandler creates a new HealthHandler. sessions may be nil.
func NewHealthHandler(db DBPinger, sessions SessionCounter, version string) *HealthHandler {
	return &HealthHandler{
		db:       db,
		sessions: sessions,
		version:  version,
	}
}

type databaseStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status         string         `json:"status"`
	Version        string         `json:"version"`
	Database       databaseStatus `json:"database"`
	ActiveSessions int            `json:"activeSessions"`
}

// ServeHTTP handles the health check request. An unreachable database
// reports "degraded" with 503.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: databaseStatus{Connected: true},
	}
	if h.sessions != nil {
		data.ActiveSessions = h.sessions.Len()
	}

	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
		data.Status = "degraded"
		data.Database.Connected = false
		status = http.StatusServiceUnavailable
	}

	response.Success(w, status, data, requestID)
}
