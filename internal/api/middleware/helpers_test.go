package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

const testPassword = "secret1"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func assertErrorCode(t *testing.T, env map[string]interface{}, code string) {
	t.Helper()
	apiErr, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "envelope should carry an error")
	assert.Equal(t, code, apiErr["code"])
}

// --- In-memory Directory ---

type memDirectory struct {
	mu    sync.Mutex
	users map[string]*auth.Identity
}

func newMemDirectory() *memDirectory {
	return &memDirectory{users: make(map[string]*auth.Identity)}
}

func (d *memDirectory) add(email string) *auth.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := &auth.Identity{ID: uuid.New(), Email: email}
	d.users[email] = id
	return id
}

func (d *memDirectory) CreateAccount(_ context.Context, email, _ string) (*auth.Identity, error) {
	return d.add(email), nil
}

func (d *memDirectory) Verify(_ context.Context, email, password string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.users[email]
	if !ok || password != testPassword {
		return nil, &auth.AuthError{Op: "sign in", Err: auth.ErrInvalidCredentials}
	}
	cp := *id
	return &cp, nil
}

func (d *memDirectory) DeleteAccount(context.Context, uuid.UUID) error { return nil }

// --- In-memory Profiles ---

type memProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]profile.Profile
	gate     chan struct{}
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[uuid.UUID]profile.Profile)}
}

func (m *memProfiles) put(p profile.Profile) {
	m.mu.Lock()
	m.profiles[p.ID] = p
	m.mu.Unlock()
}

// hold makes Get block until the returned release func is called.
func (m *memProfiles) hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *memProfiles) Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

// --- Auth fixture ---

type authFixture struct {
	dir      *memDirectory
	profiles *memProfiles
	registry *session.Registry
	tokens   *auth.TokenIssuer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		dir:      newMemDirectory(),
		profiles: newMemProfiles(),
		tokens:   auth.NewTokenIssuer("test-secret", time.Hour),
	}
	f.registry = session.NewRegistry(f.dir, f.profiles)
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f.registry.Run(ctx, time.Hour)
	})
	return f
}

// signIn creates a user with the given profile state, signs them in on a new
// session and returns the session and its bearer token.
func (f *authFixture) signIn(t *testing.T, email string, role profile.Role, approved bool) (*session.Session, string) {
	t.Helper()
	id := f.dir.add(email)
	f.profiles.put(profile.Profile{
		ID:          id.ID,
		Email:       email,
		DisplayName: email,
		Role:        role,
		Approved:    approved,
		CreatedAt:   time.Now().UTC(),
	})

	sess := f.registry.Open()
	_, err := sess.Client.SignIn(context.Background(), email, testPassword)
	require.NoError(t, err)

	token, _, err := f.tokens.Issue(sess.ID, id)
	require.NoError(t, err)
	return sess, token
}
