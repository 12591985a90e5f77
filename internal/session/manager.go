package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/metrics"
	"github.com/daap14/caseentry/internal/profile"
)

// Manager keeps one client's Snapshot in step with its identity provider.
//
// The Manager is the only writer of its snapshot. Identity events are applied
// in the order the provider emits them; every event bumps a sequence number
// and cancels the profile fetch started by the previous one, so a slow fetch
// can never overwrite the result of a newer event.
type Manager struct {
	provider auth.Provider
	profiles profile.Getter
	recorder metrics.Recorder

	startOnce sync.Once
	closeOnce sync.Once
	baseCtx   context.Context
	stop      context.CancelFunc

	mu          sync.Mutex
	snap        Snapshot
	seq         uint64
	cancelFetch context.CancelFunc
	changed     chan struct{}
	unsubscribe func()
	closed      bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder for state transitions.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// NewManager creates a Manager in the initial resolving state. It does not
// listen to the provider until Start is called.
func NewManager(provider auth.Provider, profiles profile.Getter, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: provider,
		profiles: profiles,
		recorder: metrics.Noop{},
		baseCtx:  ctx,
		stop:     cancel,
		snap:     Snapshot{Resolving: true},
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to the provider. Only the first call subscribes; later
// calls do nothing, so a manager never holds two subscriptions.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}

		unsubscribe := m.provider.Subscribe(m.handle)

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			unsubscribe()
			return
		}
		m.unsubscribe = unsubscribe
		m.mu.Unlock()
	})
}

// Close unsubscribes from the provider and cancels any in-flight profile
// fetch. The last snapshot stays readable.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		if m.cancelFetch != nil {
			m.cancelFetch()
			m.cancelFetch = nil
		}
		m.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		m.stop()
	})
}

// Snapshot returns a copy of the current snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// Changes returns a channel that is closed at the next snapshot change.
func (m *Manager) Changes() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

// Await blocks until the snapshot is no longer resolving or ctx is done. It
// returns the latest snapshot in both cases, with ctx's error in the latter.
func (m *Manager) Await(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		snap := m.snap.clone()
		changed := m.changed
		m.mu.Unlock()

		if !snap.Resolving {
			return snap, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// SignOut asks the provider to end the session. The snapshot is marked
// resolving until the provider's sign-out event clears it. If the provider
// call fails, the resolving mark is dropped from whatever snapshot is current
// by then, unless a profile fetch is still pending and will settle it.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	next := m.snap.clone()
	next.Resolving = true
	m.setLocked(next)
	m.mu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		m.mu.Lock()
		if m.snap.Resolving && m.cancelFetch == nil && m.seq > 0 && !m.closed {
			cur := m.snap.clone()
			cur.Resolving = false
			m.setLocked(cur)
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// handle applies one identity event. It is called synchronously by the
// provider, in emission order.
func (m *Manager) handle(id *auth.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.seq++
	seq := m.seq
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}

	if id == nil {
		m.setLocked(Snapshot{})
		return
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancelFetch = cancel
	m.setLocked(Snapshot{Identity: id, Resolving: true})

	go m.resolve(ctx, seq, id)
}

func (m *Manager) resolve(ctx context.Context, seq uint64, id *auth.Identity) {
	p, err := m.profiles.Get(ctx, id.ID)
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		slog.Debug("no profile for identity", "userId", id.ID)
		p = nil
	case err != nil:
		if ctx.Err() == nil {
			slog.Warn("profile unavailable", "userId", id.ID, "error", err)
		}
		p = nil
	case p != nil && p.ID != id.ID:
		slog.Warn("profile does not belong to identity", "userId", id.ID, "profileId", p.ID)
		p = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seq != seq || m.closed {
		return
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	m.setLocked(Snapshot{Identity: id, Profile: p})
}

func (m *Manager) setLocked(s Snapshot) {
	m.snap = s.clone()
	close(m.changed)
	m.changed = make(chan struct{})
	m.recorder.RecordSessionState(string(m.snap.State()))
}
