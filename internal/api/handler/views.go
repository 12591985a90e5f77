package handler

import (
	"time"

	"github.com/daap14/caseentry/internal/access"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

const timeLayout = "2006-01-02T15:04:05Z"

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Approved    bool   `json:"approved"`
	CreatedAt   string `json:"createdAt"`
}

func toProfileResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID.String(),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		Approved:    p.Approved,
		CreatedAt:   p.CreatedAt.UTC().Format(timeLayout),
	}
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionResponse struct {
	State            string            `json:"state"`
	LandingRoute     string            `json:"landingRoute"`
	Tabs             []string          `json:"tabs"`
	CanSubmitRecords bool              `json:"canSubmitRecords"`
	CanAdminister    bool              `json:"canAdminister"`
	User             *identityResponse `json:"user"`
	Profile          *profileResponse  `json:"profile"`
}

func toSessionResponse(s session.Snapshot) sessionResponse {
	tabs := access.Tabs(s)
	names := make([]string, 0, len(tabs))
	for _, t := range tabs {
		names = append(names, string(t))
	}

	resp := sessionResponse{
		State:            string(s.State()),
		LandingRoute:     string(access.LandingRoute(s)),
		Tabs:             names,
		CanSubmitRecords: access.CanSubmitRecords(s),
		CanAdminister:    access.CanAdminister(s),
	}
	if s.Identity != nil {
		resp.User = &identityResponse{ID: s.Identity.ID.String(), Email: s.Identity.Email}
	}
	if s.Profile != nil {
		p := toProfileResponse(s.Profile)
		resp.Profile = &p
	}
	return resp
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expiresAt"`
	Session   sessionResponse `json:"session"`
}

func toTokenResponse(token string, exp time.Time, s session.Snapshot) tokenResponse {
	return tokenResponse{
		Token:     token,
		ExpiresAt: exp.UTC().Format(timeLayout),
		Session:   toSessionResponse(s),
	}
}
