package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultSessionTTL is the expiry window for a plain session.
	DefaultSessionTTL = 24 * time.Hour
	// ExtendedSessionTTL is the expiry window for a "remember me" session.
	ExtendedSessionTTL = 30 * 24 * time.Hour

	// tokenBytes of entropy per token. 32 bytes = 256 bits.
	tokenBytes = 32
)

// Manager owns the session lifecycle: creation, validation, refresh and
// invalidation. The lookup-then-use sequence runs under one mutex so a
// concurrent invalidation cannot interleave between the read and the
// corresponding write.
type Manager struct {
	mu    sync.Mutex
	store SessionStore
	users Provider

	shortTTL time.Duration
	longTTL  time.Duration
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionTTLs overrides the default and extended session lifetimes.
func WithSessionTTLs(short, long time.Duration) ManagerOption {
	return func(m *Manager) {
		m.shortTTL = short
		m.longTTL = long
	}
}

// NewManager creates a session manager backed by the given store and
// identity provider.
func NewManager(store SessionStore, users Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		users:    users,
		shortTTL: DefaultSessionTTL,
		longTTL:  ExtendedSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newToken generates an unguessable opaque session token from crypto/rand.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create mints a session for userID. When extended is set the session
// uses the long lifetime. Token uniqueness is a statistical property of
// the generator; an actual collision is reported as ErrTokenCollision.
func (m *Manager) Create(ctx context.Context, userID string, extended bool) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok, err := m.store.Get(ctx, token); err != nil {
		return Session{}, fmt.Errorf("checking token uniqueness: %w", err)
	} else if ok {
		return Session{}, ErrTokenCollision
	}

	now := m.now()
	s := Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl(extended)),
		Extended:  extended,
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}
	return s, nil
}

// FindByToken resolves a token to its session and owning user. The checks
// run in a fixed order and the first failure determines the reason:
// existence (ErrTokenNotFound, which also covers invalidated sessions),
// expiry (ErrTokenExpired), then the owner's active flag
// (ErrAccountDeactivated).
func (m *Manager) FindByToken(ctx context.Context, token string) (User, Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("loading session: %w", err)
	}
	if !ok || s.Invalidated {
		return User{}, Session{}, ErrTokenNotFound
	}
	if s.expiredAt(m.now()) {
		return User{}, Session{}, ErrTokenExpired
	}

	user, err := m.users.UserByID(ctx, s.UserID)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("resolving session owner: %w", err)
	}
	if !user.Active {
		return User{}, Session{}, ErrAccountDeactivated
	}
	return user, s, nil
}

// Refresh slides the session expiry forward from now. When extended is
// set the long lifetime applies. The token must still resolve to a live
// session.
func (m *Manager) Refresh(ctx context.Context, token string, extended bool) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading session: %w", err)
	}
	if !ok || s.Invalidated {
		return time.Time{}, ErrTokenNotFound
	}
	now := m.now()
	if s.expiredAt(now) {
		return time.Time{}, ErrTokenExpired
	}

	s.ExpiresAt = now.Add(m.ttl(extended))
	s.Extended = extended
	if err := m.store.Put(ctx, s); err != nil {
		return time.Time{}, fmt.Errorf("storing refreshed session: %w", err)
	}
	return s.ExpiresAt, nil
}

// Invalidate marks the session unusable. Invalidating an absent or
// already-invalidated token is a no-op success.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if !ok || s.Invalidated {
		return nil
	}
	s.Invalidated = true
	if err := m.store.Put(ctx, s); err != nil {
		return fmt.Errorf("storing invalidated session: %w", err)
	}
	return nil
}

// InvalidateAllForUser marks every session owned by userID unusable.
// Used on password change and administrative revocation. Idempotent.
func (m *Manager) InvalidateAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.store.ByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing user sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Invalidated {
			continue
		}
		s.Invalidated = true
		if err := m.store.Put(ctx, s); err != nil {
			return fmt.Errorf("storing invalidated session: %w", err)
		}
	}
	return nil
}

func (m *Manager) ttl(extended bool) time.Duration {
	if extended {
		return m.longTTL
	}
	return m.shortTTL
}
