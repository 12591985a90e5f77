package session

import (
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
)

// State is the coarse session state derived from a Snapshot.
type State string

const (
	StateResolving               State = "resolving"
	StateUnauthenticated         State = "unauthenticated"
	StateAuthenticated           State = "authenticated"
	StateAuthenticatedUnapproved State = "authenticated_unapproved"
)

// Snapshot is the combined view of who is signed in and what their profile
// says. Profile is nil whenever Identity is nil.
type Snapshot struct {
	Identity  *auth.Identity
	Profile   *profile.Profile
	Resolving bool
}

// State classifies the snapshot. An identity whose profile is missing or
// unavailable is treated like an unapproved one.
func (s Snapshot) State() State {
	switch {
	case s.Resolving:
		return StateResolving
	case s.Identity == nil:
		return StateUnauthenticated
	case s.Profile != nil && s.Profile.Approved:
		return StateAuthenticated
	default:
		return StateAuthenticatedUnapproved
	}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Resolving: s.Resolving}
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}
