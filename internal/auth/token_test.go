package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/caseentry/internal/auth"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	sid := uuid.New()
	id := &auth.Identity{ID: uuid.New(), Email: "tech@example.com"}

	raw, exp, err := issuer.Issue(sid, id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, sid, claims.SessionID)
	assert.Equal(t, id.ID, claims.UserID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	t.Parallel()

	id := &auth.Identity{ID: uuid.New(), Email: "tech@example.com"}
	other := auth.NewTokenIssuer("other-secret", time.Hour)
	otherToken, _, err := other.Issue(uuid.New(), id)
	require.NoError(t, err)

	expired := auth.NewTokenIssuer("test-secret", -time.Minute)
	expiredToken, _, err := expired.Issue(uuid.New(), id)
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", otherToken},
		{"expired", expiredToken},
		{"alg none", "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzaWQiOiJ4In0."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}
