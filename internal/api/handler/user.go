package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/roster"
	"github.com/daap14/caseentry/internal/session"
)

// Roster is the admin user-management service.
type Roster interface {
	ListUsers(ctx context.Context, caller session.Snapshot) ([]profile.Profile, error)
	Approve(ctx context.Context, caller session.Snapshot, userID uuid.UUID) error
	Remove(ctx context.Context, caller session.Snapshot, userID uuid.UUID) error
	Provision(ctx context.Context, caller session.Snapshot, in roster.ProvisionInput) (*profile.Profile, error)
	UpdateRole(ctx context.Context, caller session.Snapshot, userID uuid.UUID, role profile.Role) error
}

type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UserHandler handles the admin roster endpoints.
type UserHandler struct {
	roster Roster
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(r Roster) *UserHandler {
	return &UserHandler{roster: r}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.roster.ListUsers(r.Context(), middleware.GetSnapshot(r.Context()))
	if err != nil {
		h.writeError(w, err, "Failed to list users", requestID)
		return
	}

	items := make([]profileResponse, 0, len(users))
	for i := range users {
		items = append(items, toProfileResponse(&users[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /users. Role defaults to "user".
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createUserRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if req.Role == "" {
		req.Role = string(profile.RoleUser)
	}

	p, err := h.roster.Provision(r.Context(), middleware.GetSnapshot(r.Context()), roster.ProvisionInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        profile.Role(req.Role),
	})
	if err != nil {
		h.writeError(w, err, "Failed to create user", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toProfileResponse(p), requestID)
}

// Approve handles POST /users/{id}/approve.
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := idParam(w, r, requestID)
	if !ok {
		return
	}

	if err := h.roster.Approve(r.Context(), middleware.GetSnapshot(r.Context()), id); err != nil {
		h.writeError(w, err, "Failed to approve user", requestID)
		return
	}

	response.NoContent(w)
}

// UpdateRole handles PATCH /users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := idParam(w, r, requestID)
	if !ok {
		return
	}

	var req updateRoleRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	if err := h.roster.UpdateRole(r.Context(), middleware.GetSnapshot(r.Context()), id, profile.Role(req.Role)); err != nil {
		h.writeError(w, err, "Failed to update role", requestID)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /users/{id}. Only the profile is removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := idParam(w, r, requestID)
	if !ok {
		return
	}

	if err := h.roster.Remove(r.Context(), middleware.GetSnapshot(r.Context()), id); err != nil {
		h.writeError(w, err, "Failed to remove user", requestID)
		return
	}

	response.NoContent(w)
}

func (h *UserHandler) writeError(w http.ResponseWriter, err error, message, requestID string) {
	if writeValidation(w, err, requestID) {
		return
	}

	var authErr *auth.AuthError
	switch {
	case errors.Is(err, roster.ErrForbidden):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Admin access required", requestID)
	case errors.Is(err, roster.ErrRoleUpdatesDisabled):
		response.Err(w, http.StatusForbidden, "ROLE_UPDATES_DISABLED", "Role updates are disabled", requestID)
	case errors.Is(err, roster.ErrSelfRoleChange):
		response.Err(w, http.StatusForbidden, "SELF_ROLE_CHANGE", "You cannot change your own role", requestID)
	case errors.Is(err, profile.ErrProfileNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.As(err, &authErr):
		response.Err(w, http.StatusConflict, "ACCOUNT_REJECTED", "The account could not be created", requestID)
	default:
		writeInternal(w, err, message, requestID)
	}
}
