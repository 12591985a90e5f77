package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/account"
	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

// SessionOpener creates and ends client sessions.
type SessionOpener interface {
	Open() *session.Session
	Close(id uuid.UUID)
}

// TokenIssuer signs bearer tokens for a session.
type TokenIssuer interface {
	Issue(sessionID uuid.UUID, id *auth.Identity) (string, time.Time, error)
}

// Accounts registers and signs in users on a client session.
type Accounts interface {
	Register(ctx context.Context, client account.Client, in account.RegisterInput) (*profile.Profile, error)
	SignIn(ctx context.Context, client auth.Provider, email, password string) (*auth.Identity, error)
}

type registerRequest struct {
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler handles sign-up, sign-in and sign-out.
type AuthHandler struct {
	accounts       Accounts
	sessions       SessionOpener
	tokens         TokenIssuer
	resolveTimeout time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts Accounts, sessions SessionOpener, tokens TokenIssuer, resolveTimeout time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		sessions:       sessions,
		tokens:         tokens,
		resolveTimeout: resolveTimeout,
	}
}

// Register handles POST /auth/register. The new account is signed in on a
// fresh session and starts out awaiting approval.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req registerRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	sess := h.sessions.Open()
	_, err := h.accounts.Register(r.Context(), sess.Client, account.RegisterInput{
		DisplayName:     req.DisplayName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.sessions.Close(sess.ID)
		h.writeAuthError(w, err, "Failed to register", requestID)
		return
	}

	h.respondWithToken(w, r, sess, http.StatusCreated, requestID)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req loginRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	sess := h.sessions.Open()
	if _, err := h.accounts.SignIn(r.Context(), sess.Client, req.Email, req.Password); err != nil {
		h.sessions.Close(sess.ID)
		h.writeAuthError(w, err, "Failed to sign in", requestID)
		return
	}

	h.respondWithToken(w, r, sess, http.StatusOK, requestID)
}

// Logout handles POST /auth/logout. The session is signed out and dropped,
// so its token stops working.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sess := middleware.GetSession(r.Context())

	if err := sess.Manager.SignOut(r.Context()); err != nil {
		writeInternal(w, err, "Failed to sign out", requestID)
		return
	}
	h.sessions.Close(sess.ID)

	response.NoContent(w)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, requestID string) {
	id := sess.Client.Current()
	if id == nil {
		h.sessions.Close(sess.ID)
		writeInternal(w, errors.New("session signed out during sign-in"), "Failed to start session", requestID)
		return
	}

	token, exp, err := h.tokens.Issue(sess.ID, id)
	if err != nil {
		h.sessions.Close(sess.ID)
		writeInternal(w, err, "Failed to start session", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.resolveTimeout)
	defer cancel()
	snap, _ := sess.Manager.Await(ctx)

	response.Success(w, status, toTokenResponse(token, exp, snap), requestID)
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error, message, requestID string) {
	if writeValidation(w, err, requestID) {
		return
	}
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		response.Err(w, http.StatusUnauthorized, "AUTH_FAILED", "Authentication failed", requestID)
		return
	}
	writeInternal(w, err, message, requestID)
}
