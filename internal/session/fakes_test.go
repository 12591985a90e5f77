package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/profile"
)

// --- Fake Provider ---

type fakeProvider struct {
	mu             sync.Mutex
	current        *auth.Identity
	subs           map[int]func(*auth.Identity)
	next           int
	subscribeCalls int
	signOutErr     error

	// signOutGate, when set, makes SignOut block until it is closed.
	// signOutEntered is closed once SignOut starts waiting on the gate.
	signOutGate    chan struct{}
	signOutEntered chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subs: make(map[int]func(*auth.Identity))}
}

func (f *fakeProvider) emit(id *auth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = id
	for _, fn := range f.subs {
		fn(id)
	}
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*auth.Identity, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) SignUp(context.Context, string, string) (*auth.Identity, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) SignOut(context.Context) error {
	if f.signOutGate != nil {
		close(f.signOutEntered)
		<-f.signOutGate
	}
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.emit(nil)
	return nil
}

func (f *fakeProvider) Subscribe(fn func(*auth.Identity)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	key := f.next
	f.next++
	f.subs[key] = fn
	fn(f.current)
	return func() {
		f.mu.Lock()
		delete(f.subs, key)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// --- Fake Profile Store ---

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]profile.Profile
	errs     map[uuid.UUID]error
	gates    map[uuid.UUID]chan struct{}
	done     map[uuid.UUID]chan struct{}
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles: make(map[uuid.UUID]profile.Profile),
		errs:     make(map[uuid.UUID]error),
		gates:    make(map[uuid.UUID]chan struct{}),
		done:     make(map[uuid.UUID]chan struct{}),
	}
}

func (f *fakeProfiles) put(p profile.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

func (f *fakeProfiles) fail(id uuid.UUID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

// hold makes the next Get for id block until the returned release is called,
// ignoring context cancellation. The returned done channel is closed once
// that Get has returned.
func (f *fakeProfiles) hold(id uuid.UUID) (release func(), done <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	d := make(chan struct{})
	f.gates[id] = gate
	f.done[id] = d
	return func() { close(gate) }, d
}

func (f *fakeProfiles) Get(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	f.mu.Lock()
	gate := f.gates[id]
	done := f.done[id]
	delete(f.gates, id)
	delete(f.done, id)
	p, ok := f.profiles[id]
	err := f.errs[id]
	f.mu.Unlock()

	if done != nil {
		defer close(done)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

// --- Fake Directory ---

type fakeDirectory struct {
	mu       sync.Mutex
	accounts map[string]*auth.Identity
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{accounts: make(map[string]*auth.Identity)}
}

func (d *fakeDirectory) add(email string) *auth.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := &auth.Identity{ID: uuid.New(), Email: email}
	d.accounts[email] = id
	return id
}

func (d *fakeDirectory) CreateAccount(_ context.Context, email, _ string) (*auth.Identity, error) {
	return d.add(email), nil
}

func (d *fakeDirectory) Verify(_ context.Context, email, password string) (*auth.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.accounts[email]
	if !ok || password != "secret1" {
		return nil, &auth.AuthError{Op: "sign in", Err: auth.ErrInvalidCredentials}
	}
	cp := *id
	return &cp, nil
}

func (d *fakeDirectory) DeleteAccount(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for email, acc := range d.accounts {
		if acc.ID == id {
			delete(d.accounts, email)
			return nil
		}
	}
	return auth.ErrCredentialNotFound
}
