package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/session"
)

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, httptest.NewRecorder()
}

// asCaller attaches a session snapshot as the auth middleware would.
func asCaller(req *http.Request, snap session.Snapshot) *http.Request {
	return req.WithContext(middleware.WithSnapshot(req.Context(), &session.Session{}, snap))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorOf(t *testing.T, env map[string]interface{}) map[string]interface{} {
	t.Helper()
	apiErr, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "envelope should carry an error")
	return apiErr
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	assert.Equal(t, status, w.Code)
	apiErr := errorOf(t, parseEnvelope(t, w))
	assert.Equal(t, code, apiErr["code"])
	return apiErr
}

func snapshotFor(role profile.Role, approved bool) session.Snapshot {
	id := &auth.Identity{ID: uuid.New(), Email: "caller@example.com"}
	return session.Snapshot{
		Identity: id,
		Profile:  &profile.Profile{ID: id.ID, Email: id.Email, DisplayName: "Caller", Role: role, Approved: approved},
	}
}

// --- In-memory Directory ---

type memAccount struct {
	identity auth.Identity
	password string
}

type memDirectory struct {
	mu       sync.Mutex
	accounts map[string]memAccount
}

func newMemDirectory() *memDirectory {
	return &memDirectory{accounts: make(map[string]memAccount)}
}

func (d *memDirectory) CreateAccount(_ context.Context, email, password string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	email = auth.NormalizeEmail(email)
	if _, ok := d.accounts[email]; ok {
		return nil, &auth.AuthError{Op: "sign up", Err: auth.ErrEmailTaken}
	}
	a := memAccount{identity: auth.Identity{ID: uuid.New(), Email: email}, password: password}
	d.accounts[email] = a
	id := a.identity
	return &id, nil
}

func (d *memDirectory) Verify(_ context.Context, email, password string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[auth.NormalizeEmail(email)]
	if !ok || a.password != password {
		return nil, &auth.AuthError{Op: "sign in", Err: auth.ErrInvalidCredentials}
	}
	id := a.identity
	return &id, nil
}

func (d *memDirectory) DeleteAccount(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for email, a := range d.accounts {
		if a.identity.ID == id {
			delete(d.accounts, email)
		}
	}
	return nil
}

// --- In-memory Profile Store ---

type memStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]profile.Profile
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[uuid.UUID]profile.Profile)}
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

func (m *memStore) Set(_ context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
	return nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, u profile.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return profile.ErrProfileNotFound
	}
	if u.Approved != nil {
		p.Approved = *u.Approved
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	m.profiles[id] = p
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

func (m *memStore) List(context.Context) ([]profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CountAdmins(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.profiles {
		if p.Role == profile.RoleAdmin {
			n++
		}
	}
	return n, nil
}
