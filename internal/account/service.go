// Package account implements self-service registration and sign-in.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/metrics"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/validation"
)

// DefaultMinPasswordLength is the shortest password accepted at registration.
const DefaultMinPasswordLength = 6

// Client is the per-client identity provider plus the ability to re-announce
// the current identity once the profile exists.
type Client interface {
	auth.Provider
	Reload()
}

// RegisterInput is the registration form.
type RegisterInput struct {
	DisplayName     string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service registers and signs in users.
type Service struct {
	dir         auth.Directory
	profiles    profile.Store
	minPassword int
	recorder    metrics.Recorder
	now         func() time.Time
}

// NewService creates an account Service.
func NewService(dir auth.Directory, profiles profile.Store, minPasswordLength int, recorder metrics.Recorder) *Service {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		dir:         dir,
		profiles:    profiles,
		minPassword: minPasswordLength,
		recorder:    recorder,
		now:         time.Now,
	}
}

// ValidateRegistration checks the form without touching the provider.
func (s *Service) ValidateRegistration(in RegisterInput) error {
	var errs validation.Errors

	errs.Required("displayName", in.DisplayName)
	if errs.Required("email", in.Email) {
		errs.Email("email", strings.TrimSpace(in.Email))
	}
	passwordSet := errs.Required("password", in.Password)
	confirmSet := errs.Required("confirmPassword", in.ConfirmPassword)

	if passwordSet && confirmSet {
		if in.Password != in.ConfirmPassword {
			errs.Add("confirmPassword", "passwords do not match")
		} else {
			errs.MinLength("password", in.Password, s.minPassword)
		}
	}

	return errs.Err()
}

// Register validates the form, creates the identity (which signs the client
// in), writes an unapproved user profile, and asks the client to announce
// the identity again so its session resolves the new profile.
//
// If the profile cannot be written the client is signed out and the new
// identity is deleted again.
func (s *Service) Register(ctx context.Context, client Client, in RegisterInput) (*profile.Profile, error) {
	if err := s.ValidateRegistration(in); err != nil {
		s.recorder.RecordAuthAttempt("register", "invalid")
		return nil, err
	}

	id, err := client.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		s.recorder.RecordAuthAttempt("register", "rejected")
		return nil, err
	}

	p := &profile.Profile{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        profile.RoleUser,
		Approved:    false,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.profiles.Set(ctx, p); err != nil {
		s.recorder.RecordAuthAttempt("register", "error")
		s.undoSignUp(ctx, client, id)
		return nil, fmt.Errorf("writing profile: %w", err)
	}

	client.Reload()
	s.recorder.RecordAuthAttempt("register", "ok")
	slog.Info("user registered", "userId", id.ID)

	return p, nil
}

// SignIn checks that both fields are present, then signs the client in.
func (s *Service) SignIn(ctx context.Context, client auth.Provider, email, password string) (*auth.Identity, error) {
	var errs validation.Errors
	errs.Required("email", email)
	errs.Required("password", password)
	if err := errs.Err(); err != nil {
		s.recorder.RecordAuthAttempt("sign_in", "invalid")
		return nil, err
	}

	id, err := client.SignIn(ctx, email, password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			s.recorder.RecordAuthAttempt("sign_in", "rejected")
		} else {
			s.recorder.RecordAuthAttempt("sign_in", "error")
		}
		return nil, err
	}

	s.recorder.RecordAuthAttempt("sign_in", "ok")
	return id, nil
}

func (s *Service) undoSignUp(ctx context.Context, client Client, id *auth.Identity) {
	if err := client.SignOut(ctx); err != nil {
		slog.Error("failed to sign out after profile write failure", "userId", id.ID, "error", err)
	}
	if err := s.dir.DeleteAccount(ctx, id.ID); err != nil {
		slog.Error("failed to delete identity after profile write failure", "userId", id.ID, "error", err)
	}
}
