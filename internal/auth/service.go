package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match an account, or when either is missing.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthError wraps every credential failure. Callers show one generic message
// for it and do not tell bad credentials apart from duplicate registrations.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Directory is the server-wide account registry of the identity provider.
type Directory interface {
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	Verify(ctx context.Context, email, password string) (*Identity, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Service implements Directory over a CredentialRepository with bcrypt hashes.
type Service struct {
	repo       CredentialRepository
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new auth Service.
func NewService(repo CredentialRepository, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount hashes the password and stores a new credential.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &AuthError{Op: "sign up", Err: ErrInvalidCredentials}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	c := &Credential{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &AuthError{Op: "sign up", Err: err}
		}
		return nil, fmt.Errorf("creating credential: %w", err)
	}

	slog.Info("account created", "userId", c.ID)

	return c.Identity(), nil
}

// Verify resolves an email/password pair to an Identity.
func (s *Service) Verify(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &AuthError{Op: "sign in", Err: ErrInvalidCredentials}
	}

	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			// Compare anyway so unknown emails cost the same as bad passwords.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, &AuthError{Op: "sign in", Err: ErrInvalidCredentials}
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, &AuthError{Op: "sign in", Err: ErrInvalidCredentials}
	}

	return c.Identity(), nil
}

// DeleteAccount removes the credential so the identity can no longer sign in.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("account deleted", "userId", id)
	return nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("caseentry-timing-equalizer"), s.bcryptCost)
		if err != nil {
			slog.Warn("failed to build dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
