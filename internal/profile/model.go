package profile

import (
	"time"

	"github.com/google/uuid"
)

// Role is the application role held by a profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Profile represents a row in the profiles table. ID is always the ID of the
// identity that owns the profile.
type Profile struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Role        Role
	Approved    bool
	CreatedAt   time.Time
}

// Update holds the fields to change on a profile. Nil fields are left as-is.
type Update struct {
	Approved *bool
	Role     *Role
}
