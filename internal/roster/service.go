// Package roster implements the admin user-management operations.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/access"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/metrics"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
	"github.com/daap14/caseentry/internal/validation"
)

// ErrForbidden is returned when the caller is not an admin.
var ErrForbidden = errors.New("admin access required")

// ErrRoleUpdatesDisabled is returned by UpdateRole when role changes are
// turned off by configuration.
var ErrRoleUpdatesDisabled = errors.New("role updates are disabled")

// ErrSelfRoleChange is returned when an admin tries to change their own role
// and that is not allowed by configuration.
var ErrSelfRoleChange = errors.New("cannot change own role")

// Notifier is told when a user's profile changed so live sessions of that
// user resolve it again.
type Notifier interface {
	Refresh(userID uuid.UUID) int
}

// Policy holds the configurable parts of role management.
type Policy struct {
	RoleUpdatesEnabled  bool
	AllowSelfRoleChange bool
	MinPasswordLength   int
}

// ProvisionInput is the admin's new-user form.
type ProvisionInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        profile.Role
}

// Service performs roster operations. Every method except BootstrapAdmin
// takes the caller's snapshot and requires access.CanAdminister.
type Service struct {
	profiles profile.Store
	dir      auth.Directory
	notifier Notifier
	policy   Policy
	recorder metrics.Recorder
	now      func() time.Time
}

// NewService creates a roster Service. notifier and recorder may be nil.
func NewService(profiles profile.Store, dir auth.Directory, notifier Notifier, policy Policy, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if policy.MinPasswordLength <= 0 {
		policy.MinPasswordLength = 6
	}
	return &Service{
		profiles: profiles,
		dir:      dir,
		notifier: notifier,
		policy:   policy,
		recorder: recorder,
		now:      time.Now,
	}
}

// ListUsers returns every profile in creation order.
func (s *Service) ListUsers(ctx context.Context, caller session.Snapshot) ([]profile.Profile, error) {
	if !access.CanAdminister(caller) {
		s.recorder.RecordRosterOperation("list", "forbidden")
		return nil, ErrForbidden
	}

	users, err := s.profiles.List(ctx)
	if err != nil {
		s.recorder.RecordRosterOperation("list", "error")
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	s.recorder.RecordRosterOperation("list", "ok")
	return users, nil
}

// Approve marks the user approved. Approving an approved user succeeds
// without changes.
func (s *Service) Approve(ctx context.Context, caller session.Snapshot, userID uuid.UUID) error {
	if !access.CanAdminister(caller) {
		s.recorder.RecordRosterOperation("approve", "forbidden")
		return ErrForbidden
	}

	approved := true
	if err := s.profiles.Update(ctx, userID, profile.Update{Approved: &approved}); err != nil {
		s.recorder.RecordRosterOperation("approve", result(err))
		return err
	}

	s.refresh(userID)
	s.recorder.RecordRosterOperation("approve", "ok")
	slog.Info("user approved", "userId", userID, "by", caller.Identity.ID)
	return nil
}

// Remove deletes the user's profile. The identity is left in place: it can
// still sign in, but resolves to no profile and so cannot submit records.
func (s *Service) Remove(ctx context.Context, caller session.Snapshot, userID uuid.UUID) error {
	if !access.CanAdminister(caller) {
		s.recorder.RecordRosterOperation("remove", "forbidden")
		return ErrForbidden
	}

	if err := s.profiles.Delete(ctx, userID); err != nil {
		s.recorder.RecordRosterOperation("remove", result(err))
		return err
	}

	s.refresh(userID)
	s.recorder.RecordRosterOperation("remove", "ok")
	slog.Info("user removed", "userId", userID, "by", caller.Identity.ID)
	return nil
}

// ValidateProvision checks the new-user form without touching any store.
func (s *Service) ValidateProvision(in ProvisionInput) error {
	var errs validation.Errors

	if errs.Required("email", in.Email) {
		errs.Email("email", strings.TrimSpace(in.Email))
	}
	if errs.Required("password", in.Password) {
		errs.MinLength("password", in.Password, s.policy.MinPasswordLength)
	}
	if errs.Required("displayName", in.DisplayName) {
		errs.MaxLength("displayName", strings.TrimSpace(in.DisplayName), 255)
	}
	checkRole(&errs, in.Role)

	return errs.Err()
}

// Provision creates an identity and an approved profile with the requested
// role. Admin-created accounts skip the approval gate. If the profile write
// fails, the identity just created is deleted again.
func (s *Service) Provision(ctx context.Context, caller session.Snapshot, in ProvisionInput) (*profile.Profile, error) {
	if !access.CanAdminister(caller) {
		s.recorder.RecordRosterOperation("provision", "forbidden")
		return nil, ErrForbidden
	}

	p, err := s.provision(ctx, in)
	if err != nil {
		s.recorder.RecordRosterOperation("provision", result(err))
		return nil, err
	}

	s.recorder.RecordRosterOperation("provision", "ok")
	slog.Info("user provisioned", "userId", p.ID, "role", p.Role, "by", caller.Identity.ID)
	return p, nil
}

// UpdateRole changes the user's role, subject to Policy.
func (s *Service) UpdateRole(ctx context.Context, caller session.Snapshot, userID uuid.UUID, role profile.Role) error {
	if !access.CanAdminister(caller) {
		s.recorder.RecordRosterOperation("update_role", "forbidden")
		return ErrForbidden
	}
	if !s.policy.RoleUpdatesEnabled {
		s.recorder.RecordRosterOperation("update_role", "forbidden")
		return ErrRoleUpdatesDisabled
	}
	if caller.Identity.ID == userID && !s.policy.AllowSelfRoleChange {
		s.recorder.RecordRosterOperation("update_role", "forbidden")
		return ErrSelfRoleChange
	}

	var errs validation.Errors
	checkRole(&errs, role)
	if err := errs.Err(); err != nil {
		s.recorder.RecordRosterOperation("update_role", "invalid")
		return err
	}

	if err := s.profiles.Update(ctx, userID, profile.Update{Role: &role}); err != nil {
		s.recorder.RecordRosterOperation("update_role", result(err))
		return err
	}

	s.refresh(userID)
	s.recorder.RecordRosterOperation("update_role", "ok")
	slog.Info("user role updated", "userId", userID, "role", role, "by", caller.Identity.ID)
	return nil
}

// BootstrapAdmin creates an approved admin when the store holds none. It
// returns nil, nil when an admin already exists.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password, displayName string) (*profile.Profile, error) {
	count, err := s.profiles.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	p, err := s.provision(ctx, ProvisionInput{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		Role:        profile.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "userId", p.ID, "email", p.Email)
	return p, nil
}

func (s *Service) provision(ctx context.Context, in ProvisionInput) (*profile.Profile, error) {
	if err := s.ValidateProvision(in); err != nil {
		return nil, err
	}

	id, err := s.dir.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	p := &profile.Profile{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        in.Role,
		Approved:    true,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.profiles.Set(ctx, p); err != nil {
		if delErr := s.dir.DeleteAccount(ctx, id.ID); delErr != nil {
			slog.Error("failed to delete identity after profile write failure", "userId", id.ID, "error", delErr)
		}
		return nil, fmt.Errorf("writing profile: %w", err)
	}

	return p, nil
}

func (s *Service) refresh(userID uuid.UUID) {
	if s.notifier != nil {
		s.notifier.Refresh(userID)
	}
}

func result(err error) string {
	var verrs validation.Errors
	var authErr *auth.AuthError
	switch {
	case errors.As(err, &verrs):
		return "invalid"
	case errors.As(err, &authErr):
		return "rejected"
	case errors.Is(err, profile.ErrProfileNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func checkRole(errs *validation.Errors, role profile.Role) {
	if errs.Required("role", string(role)) && !role.Valid() {
		errs.Add("role", `role must be one of "admin", "user"`)
	}
}
