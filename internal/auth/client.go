package auth

import (
	"context"
	"sync"
)

// Provider is the identity provider as seen by one client: it signs that
// client in and out and reports every change of its signed-in identity.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// Client implements Provider for a single client on top of a Directory.
//
// Subscribers are called synchronously, one event at a time, in the order
// the changes happen. A subscriber receives the current identity (nil when
// signed out) as soon as it subscribes. Subscribers must not call back into
// the Client from the callback.
type Client struct {
	dir Directory

	mu      sync.Mutex
	current *Identity
	subs    map[uint64]func(*Identity)
	nextSub uint64
}

// NewClient creates a signed-out Client.
func NewClient(dir Directory) *Client {
	return &Client{
		dir:  dir,
		subs: make(map[uint64]func(*Identity)),
	}
}

// SignIn verifies the credentials and makes the identity current.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	id, err := c.dir.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(id)
	return copyIdentity(id), nil
}

// SignUp creates an account and signs the client in as the new identity.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	id, err := c.dir.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(id)
	return copyIdentity(id), nil
}

// SignOut clears the current identity.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.set(nil)
	return nil
}

// Reload re-announces the current identity to every subscriber.
func (c *Client) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked()
}

// Current returns the signed-in identity, or nil.
func (c *Client) Current() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyIdentity(c.current)
}

// Subscribe registers fn and immediately calls it with the current identity.
func (c *Client) Subscribe(fn func(*Identity)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.nextSub
	c.nextSub++
	c.subs[key] = fn
	fn(copyIdentity(c.current))

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, key)
			c.mu.Unlock()
		})
	}
}

func (c *Client) set(id *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = copyIdentity(id)
	c.emitLocked()
}

func (c *Client) emitLocked() {
	for _, fn := range c.subs {
		fn(copyIdentity(c.current))
	}
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
