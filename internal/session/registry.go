package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/metrics"
	"github.com/daap14/caseentry/internal/profile"
)

// signedOutGrace is how long a signed-out session is kept before the sweeper
// drops it, so a client in the middle of signing in is not swept.
const signedOutGrace = time.Minute

// Session is one client's identity provider handle and session manager.
type Session struct {
	ID        uuid.UUID
	Client    *auth.Client
	Manager   *Manager
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds the live client sessions of the server, keyed by session ID.
type Registry struct {
	dir         auth.Directory
	profiles    profile.Getter
	recorder    metrics.Recorder
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTimeout sets how long an unused session survives.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

// WithRegistryRecorder sets the metrics recorder handed to every manager.
func WithRegistryRecorder(rec metrics.Recorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(dir auth.Directory, profiles profile.Getter, opts ...RegistryOption) *Registry {
	r := &Registry{
		dir:         dir,
		profiles:    profiles,
		recorder:    metrics.Noop{},
		idleTimeout: 30 * time.Minute,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates a signed-out client session with a started manager.
func (r *Registry) Open() *Session {
	client := auth.NewClient(r.dir)
	mgr := NewManager(client, r.profiles, WithRecorder(r.recorder))
	mgr.Start()

	now := r.now()
	s := &Session{
		ID:        uuid.New(),
		Client:    client,
		Manager:   mgr,
		CreatedAt: now,
		lastSeen:  now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s
}

// Get returns the session with the given ID and marks it as used.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch(r.now())
	return s, true
}

// Close removes a session and stops its manager. Unknown IDs are ignored.
func (r *Registry) Close(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Manager.Close()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Refresh makes every live session signed in as userID resolve its profile
// again. It returns the number of sessions refreshed.
func (r *Registry) Refresh(userID uuid.UUID) int {
	var targets []*Session
	r.mu.RLock()
	for _, s := range r.sessions {
		if cur := s.Client.Current(); cur != nil && cur.ID == userID {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range targets {
		s.Client.Reload()
	}
	return len(targets)
}

// Sweep closes sessions that have been idle past the idle timeout, and
// signed-out sessions past a short grace period. It returns how many were closed.
func (r *Registry) Sweep() int {
	now := r.now()

	var expired []uuid.UUID
	r.mu.RLock()
	for id, s := range r.sessions {
		idle := now.Sub(s.idleSince())
		switch {
		case idle > r.idleTimeout:
			expired = append(expired, id)
		case idle > signedOutGrace && s.Manager.Snapshot().State() == StateUnauthenticated:
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.Close(id)
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is cancelled, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	slog.Info("session sweeper started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("swept idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Manager.Close()
	}
}
