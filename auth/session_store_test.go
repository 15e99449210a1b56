package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeBackends builds one of each SessionStore implementation so the
// contract tests run against all of them.
func storeBackends(t *testing.T) map[string]SessionStore {
	t.Helper()

	bolt, err := NewBoltSessionStoreFromFile(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]SessionStore{
		"memory": NewMemorySessionStore(),
		"bolt":   bolt,
		"redis":  NewRedisSessionStore(rdb),
	}
}

func testSession(token, userID string) Session {
	now := time.Now().UTC().Truncate(time.Second)
	return Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionStore_PutGetRoundTrip(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := testSession("tok-1", "42")
			require.NoError(t, store.Put(ctx, want))

			got, ok, err := store.Get(ctx, "tok-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.Token, got.Token)
			assert.Equal(t, want.UserID, got.UserID)
			assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestSessionStore_GetUnknownToken(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(context.Background(), "absent")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSessionStore_PutOverwrites(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := testSession("tok-1", "42")
			require.NoError(t, store.Put(ctx, s))

			s.Invalidated = true
			require.NoError(t, store.Put(ctx, s))

			got, ok, err := store.Get(ctx, "tok-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, got.Invalidated)
		})
	}
}

func TestSessionStore_ByUser(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, testSession("tok-1", "42")))
			require.NoError(t, store.Put(ctx, testSession("tok-2", "42")))
			require.NoError(t, store.Put(ctx, testSession("tok-3", "43")))

			sessions, err := store.ByUser(ctx, "42")
			require.NoError(t, err)
			tokens := make([]string, 0, len(sessions))
			for _, s := range sessions {
				tokens = append(tokens, s.Token)
			}
			assert.ElementsMatch(t, []string{"tok-1", "tok-2"}, tokens)

			sessions, err = store.ByUser(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

func TestSessionStore_Delete(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, testSession("tok-1", "42")))
			require.NoError(t, store.Delete(ctx, "tok-1"))

			_, ok, err := store.Get(ctx, "tok-1")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting an absent token is not an error.
			assert.NoError(t, store.Delete(ctx, "tok-1"))
		})
	}
}

func TestBoltSessionStore_SweepRemovesExpiredOnly(t *testing.T) {
	ctx := context.Background()
	store, err := NewBoltSessionStoreFromFile(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().UTC()
	expired := Session{Token: "old", UserID: "42", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	invalidated := testSession("revoked", "42")
	invalidated.Invalidated = true
	live := testSession("live", "42")

	require.NoError(t, store.Put(ctx, expired))
	require.NoError(t, store.Put(ctx, invalidated))
	require.NoError(t, store.Put(ctx, live))

	store.sweepExpired(now)

	_, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "expired session should be swept")

	_, ok, err = store.Get(ctx, "revoked")
	require.NoError(t, err)
	assert.True(t, ok, "invalidated sessions stay until they expire")

	_, ok, err = store.Get(ctx, "live")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisSessionStore_RecordsExpireWithRedisTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewRedisSessionStore(rdb)

	s := testSession("tok-1", "42")
	require.NoError(t, store.Put(ctx, s))

	// Past the session expiry plus the retention margin.
	mr.FastForward(time.Until(s.ExpiresAt) + 2*time.Hour)

	_, ok, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)

	sessions, err := store.ByUser(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, sessions, "stale index entries are pruned on listing")
}
