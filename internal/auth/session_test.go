package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &SessionStore{Redis: client}, mr
}

func testSession(id, userID string) Session {
	now := time.Now().UTC().Truncate(time.Second)
	return Session{
		ID:        id,
		UserID:    userID,
		Role:      "USER",
		Bearer:    "jwt-value",
		IP:        "203.0.113.7",
		UserAgent: "test-agent",
		LoginTime: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestSessions(t)
	ctx := context.Background()

	sess := testSession(NewSessionID(), "u1")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Role, got.Role)
	assert.Equal(t, sess.IP, got.IP)
	assert.Equal(t, sess.UserAgent, got.UserAgent)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionGetMissing(t *testing.T) {
	store, _ := newTestSessions(t)
	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestSessions(t)
	ctx := context.Background()

	sess := testSession(NewSessionID(), "u1")
	require.NoError(t, store.Create(ctx, sess))

	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionDelete(t *testing.T) {
	store, _ := newTestSessions(t)
	ctx := context.Background()

	sess := testSession(NewSessionID(), "u1")
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.Delete(ctx, "u1", sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := store.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessionDeleteByUser(t *testing.T) {
	store, _ := newTestSessions(t)
	ctx := context.Background()

	a := testSession(NewSessionID(), "u1")
	b := testSession(NewSessionID(), "u1")
	other := testSession(NewSessionID(), "u2")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))
	require.NoError(t, store.Create(ctx, other))

	require.NoError(t, store.DeleteByUser(ctx, "u1"))

	for _, id := range []string{a.ID, b.ID} {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	got, err := store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSessionListForUser(t *testing.T) {
	store, _ := newTestSessions(t)
	ctx := context.Background()

	a := testSession(NewSessionID(), "u1")
	b := testSession(NewSessionID(), "u1")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	list, err := store.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
