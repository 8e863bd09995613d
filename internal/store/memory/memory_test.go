package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identityd/internal/model"
	"identityd/internal/store"
)

func TestCreateUserConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, model.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, model.User{Username: "other", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateUser(ctx, model.User{Username: "Alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestCreateUserConcurrentSameEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	const racers = 8
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		username := fmt.Sprintf("alice-%d", i)
		go func() {
			start.Wait()
			_, err := s.CreateUser(ctx, model.User{Username: username, Email: "alice@example.com"})
			results <- err
		}()
	}
	start.Done()

	var created int
	for i := 0; i < racers; i++ {
		err := <-results
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, store.ErrConflict)
	}
	assert.Equal(t, 1, created)
}

func TestConsumeAuthTokenOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateAuthToken(ctx, model.AuthToken{
		UserID:    "u1",
		TokenHash: "hash-1",
		Kind:      model.TokenKindPasswordReset,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := s.ConsumeAuthToken(ctx, "hash-1", model.TokenKindPasswordReset, now)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.ConsumeAuthToken(ctx, "hash-1", model.TokenKindPasswordReset, now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeAuthTokenExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateAuthToken(ctx, model.AuthToken{
		UserID:    "u1",
		TokenHash: "hash-1",
		Kind:      model.TokenKindPasswordReset,
		ExpiresAt: now.Add(-time.Minute),
	}))

	_, err := s.ConsumeAuthToken(ctx, "hash-1", model.TokenKindPasswordReset, now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTwoFactorCredentialLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	codes := []model.BackupCode{{CodeHash: "h1"}, {CodeHash: "h2"}}
	require.NoError(t, s.CreateTwoFactorCredential(ctx, model.TwoFactorCredential{UserID: "u1", Secret: "s1"}, codes))

	// A restarted setup replaces the pending credential.
	require.NoError(t, s.CreateTwoFactorCredential(ctx, model.TwoFactorCredential{UserID: "u1", Secret: "s2"}, codes))

	cred, err := s.GetTwoFactorCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s2", cred.Secret)
	assert.False(t, cred.IsEnabled)

	require.NoError(t, s.EnableTwoFactorCredential(ctx, cred.ID))

	// An enabled credential refuses replacement.
	err = s.CreateTwoFactorCredential(ctx, model.TwoFactorCredential{UserID: "u1", Secret: "s3"}, codes)
	assert.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, s.DeleteTwoFactorCredential(ctx, "u1"))
	_, err = s.GetTwoFactorCredential(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeBackupCodeOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateTwoFactorCredential(ctx, model.TwoFactorCredential{UserID: "u1", Secret: "s1"},
		[]model.BackupCode{{CodeHash: "h1"}, {CodeHash: "h2"}}))
	cred, err := s.GetTwoFactorCredential(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, s.ConsumeBackupCode(ctx, cred.ID, "h1", now))
	assert.ErrorIs(t, s.ConsumeBackupCode(ctx, cred.ID, "h1", now), store.ErrNotFound)

	// The sibling code is still live.
	require.NoError(t, s.ConsumeBackupCode(ctx, cred.ID, "h2", now))
}

func TestClaimDueEmailsOrderAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, offset := range []time.Duration{-3 * time.Minute, -2 * time.Minute, -time.Minute, time.Hour} {
		require.NoError(t, s.EnqueueEmail(ctx, model.QueuedEmail{
			ID:          string(rune('a' + i)),
			To:          "user@example.com",
			Status:      model.EmailStatusPending,
			ScheduledAt: now.Add(offset),
		}))
	}

	due, err := s.ClaimDueEmails(ctx, 2, now, 3, time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].ID)
	assert.Equal(t, "b", due[1].ID)

	// Claimed rows moved to sending and are not handed out twice.
	again, err := s.ClaimDueEmails(ctx, 10, now, 3, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "c", again[0].ID)
}
