package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider serves fixed users for session tests.
type stubProvider map[string]User

func (p stubProvider) UserByID(_ context.Context, id string) (User, error) {
	u, ok := p[id]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", id, ErrUserNotFound)
	}
	return u, nil
}

func newTestManager(t *testing.T, users stubProvider, opts ...ManagerOption) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemorySessionStore(), users, opts...)
	m.now = clock.Now
	return m, clock
}

func TestManager_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Role: RoleMember, Active: true}}
	m, clock := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "42", s.UserID)
	assert.Equal(t, clock.Now().Add(DefaultSessionTTL), s.ExpiresAt)
	assert.False(t, s.Extended)

	user, found, err := m.FindByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", user.ID)
	assert.Equal(t, s.Token, found.Token)
}

func TestManager_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, stubProvider{"42": {ID: "42", Active: true}})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := m.Create(ctx, "42", false)
		require.NoError(t, err)
		require.False(t, seen[s.Token], "token generated twice")
		seen[s.Token] = true
	}
}

func TestManager_UnknownToken(t *testing.T) {
	m, _ := newTestManager(t, stubProvider{})

	_, _, err := m.FindByToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestManager_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)

	clock.Advance(DefaultSessionTTL + time.Second)
	_, _, err = m.FindByToken(ctx, s.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_ExtendedSessionOutlivesDefault(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users)

	s, err := m.Create(ctx, "42", true)
	require.NoError(t, err)
	assert.True(t, s.Extended)

	// Well past the default lifetime but inside the extended one.
	clock.Advance(48 * time.Hour)
	_, _, err = m.FindByToken(ctx, s.Token)
	require.NoError(t, err)

	clock.Advance(ExtendedSessionTTL)
	_, _, err = m.FindByToken(ctx, s.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_DeactivatedOwner(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, _ := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)

	users["42"] = User{ID: "42", Active: false}
	_, _, err = m.FindByToken(ctx, s.Token)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestManager_InvalidatedTokenReportsNotFound(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, _ := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx, s.Token))

	_, _, err = m.FindByToken(ctx, s.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestManager_InvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, stubProvider{"42": {ID: "42", Active: true}})

	assert.NoError(t, m.Invalidate(ctx, "never-issued"))

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	assert.NoError(t, m.Invalidate(ctx, s.Token))
	assert.NoError(t, m.Invalidate(ctx, s.Token))
}

func TestManager_InvalidateAllForUser(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{
		"42": {ID: "42", Active: true},
		"43": {ID: "43", Active: true},
	}
	m, _ := newTestManager(t, users)

	a, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	b, err := m.Create(ctx, "42", true)
	require.NoError(t, err)
	other, err := m.Create(ctx, "43", false)
	require.NoError(t, err)

	require.NoError(t, m.InvalidateAllForUser(ctx, "42"))

	_, _, err = m.FindByToken(ctx, a.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, _, err = m.FindByToken(ctx, b.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, _, err = m.FindByToken(ctx, other.Token)
	assert.NoError(t, err, "other users' sessions must survive")
}

func TestManager_RefreshSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)

	clock.Advance(12 * time.Hour)
	expires, err := m.Refresh(ctx, s.Token, false)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(DefaultSessionTTL), expires)

	// The old deadline would have passed without the refresh.
	clock.Advance(13 * time.Hour)
	_, _, err = m.FindByToken(ctx, s.Token)
	assert.NoError(t, err)
}

func TestManager_RefreshUpgradesToExtended(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)

	expires, err := m.Refresh(ctx, s.Token, true)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(ExtendedSessionTTL), expires)
}

func TestManager_RefreshRejectsDeadTokens(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users)

	_, err := m.Refresh(ctx, "no-such-token", false)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	s, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	clock.Advance(DefaultSessionTTL + time.Minute)
	_, err = m.Refresh(ctx, s.Token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_CustomTTLs(t *testing.T) {
	ctx := context.Background()
	users := stubProvider{"42": {ID: "42", Active: true}}
	m, clock := newTestManager(t, users, WithSessionTTLs(time.Hour, 10*time.Hour))

	short, err := m.Create(ctx, "42", false)
	require.NoError(t, err)
	long, err := m.Create(ctx, "42", true)
	require.NoError(t, err)

	assert.Equal(t, clock.Now().Add(time.Hour), short.ExpiresAt)
	assert.Equal(t, clock.Now().Add(10*time.Hour), long.ExpiresAt)
}
