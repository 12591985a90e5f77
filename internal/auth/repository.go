package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned when a credential record is not found.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrEmailTaken is returned when a credential with the same email already exists.
var ErrEmailTaken = errors.New("email already registered")

// CredentialRepository provides operations on the credentials table.
type CredentialRepository interface {
	Create(ctx context.Context, c *Credential) error
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
