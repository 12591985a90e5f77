// Package access decides what a session may do. Every function is pure.
package access

import (
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

// Route is the surface a client should show.
type Route string

const (
	RouteLogin   Route = "login"
	RouteLoading Route = "loading"
	RouteMain    Route = "main"
)

// Tab is one entry of the main surface's navigation.
type Tab string

const (
	TabRecords Tab = "records"
	TabAdmin   Tab = "admin"
	TabProfile Tab = "profile"
)

// CanSubmitRecords reports whether the session has an approved profile.
func CanSubmitRecords(s session.Snapshot) bool {
	return s.Profile != nil && s.Profile.Approved
}

// CanAdminister reports whether the session has an admin profile.
func CanAdminister(s session.Snapshot) bool {
	return s.Profile != nil && s.Profile.Role == profile.RoleAdmin
}

// LandingRoute picks the surface for the snapshot.
func LandingRoute(s session.Snapshot) Route {
	switch s.State() {
	case session.StateResolving:
		return RouteLoading
	case session.StateUnauthenticated:
		return RouteLogin
	default:
		return RouteMain
	}
}

// Tabs lists the main surface's navigation entries, in display order. Only
// admins get the admin tab; nothing is shown off the main surface.
func Tabs(s session.Snapshot) []Tab {
	if LandingRoute(s) != RouteMain {
		return nil
	}
	tabs := []Tab{TabRecords}
	if CanAdminister(s) {
		tabs = append(tabs, TabAdmin)
	}
	return append(tabs, TabProfile)
}
