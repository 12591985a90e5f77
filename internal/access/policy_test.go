package access_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/daap14/caseentry/internal/access"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

func snapshots() map[string]session.Snapshot {
	id := &auth.Identity{ID: uuid.New(), Email: "tech@example.com"}
	mk := func(role profile.Role, approved bool) *profile.Profile {
		return &profile.Profile{ID: id.ID, Email: id.Email, Role: role, Approved: approved, CreatedAt: time.Now()}
	}
	return map[string]session.Snapshot{
		"initial":            {Resolving: true},
		"resolving profile":  {Identity: id, Resolving: true},
		"signed out":         {},
		"no profile":         {Identity: id},
		"pending user":       {Identity: id, Profile: mk(profile.RoleUser, false)},
		"approved user":      {Identity: id, Profile: mk(profile.RoleUser, true)},
		"pending admin":      {Identity: id, Profile: mk(profile.RoleAdmin, false)},
		"approved admin":     {Identity: id, Profile: mk(profile.RoleAdmin, true)},
		"signing out, admin": {Identity: id, Profile: mk(profile.RoleAdmin, true), Resolving: true},
	}
}

func TestCanSubmitRecords_IffApprovedProfile(t *testing.T) {
	t.Parallel()

	for name, s := range snapshots() {
		want := s.Profile != nil && s.Profile.Approved
		assert.Equal(t, want, access.CanSubmitRecords(s), name)
	}
}

func TestCanAdminister_IffAdminProfile(t *testing.T) {
	t.Parallel()

	for name, s := range snapshots() {
		want := s.Profile != nil && s.Profile.Role == profile.RoleAdmin
		assert.Equal(t, want, access.CanAdminister(s), name)
	}
}

func TestLandingRoute(t *testing.T) {
	t.Parallel()

	all := snapshots()
	tests := []struct {
		snapshot string
		want     access.Route
	}{
		{"initial", access.RouteLoading},
		{"resolving profile", access.RouteLoading},
		{"signing out, admin", access.RouteLoading},
		{"signed out", access.RouteLogin},
		{"no profile", access.RouteMain},
		{"pending user", access.RouteMain},
		{"approved user", access.RouteMain},
		{"approved admin", access.RouteMain},
	}
	for _, tt := range tests {
		t.Run(tt.snapshot, func(t *testing.T) {
			assert.Equal(t, tt.want, access.LandingRoute(all[tt.snapshot]))
		})
	}
}

func TestTabs(t *testing.T) {
	t.Parallel()

	all := snapshots()
	tests := []struct {
		snapshot string
		want     []access.Tab
	}{
		{"initial", nil},
		{"signed out", nil},
		{"no profile", []access.Tab{access.TabRecords, access.TabProfile}},
		{"approved user", []access.Tab{access.TabRecords, access.TabProfile}},
		{"pending admin", []access.Tab{access.TabRecords, access.TabAdmin, access.TabProfile}},
		{"approved admin", []access.Tab{access.TabRecords, access.TabAdmin, access.TabProfile}},
	}
	for _, tt := range tests {
		t.Run(tt.snapshot, func(t *testing.T) {
			assert.Equal(t, tt.want, access.Tabs(all[tt.snapshot]))
		})
	}
}
