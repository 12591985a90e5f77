package auth

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated principal handed to the rest of the
// application. It is read-only for the lifetime of a client session.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Credential represents a row in the credentials table.
type Credential struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the public view of the credential.
func (c *Credential) Identity() *Identity {
	return &Identity{ID: c.ID, Email: c.Email}
}
