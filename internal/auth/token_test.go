package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identityd/internal/model"
	"identityd/internal/store/memory"
)

func newTestLedger() *Ledger {
	return NewLedger(memory.New())
}

func TestLedgerIssueAndConsume(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	value, err := l.Issue(ctx, "u1", model.TokenKindPasswordReset, time.Hour)
	require.NoError(t, err)
	require.Len(t, value, tokenBytes*2)

	got, err := l.Verify(ctx, value, model.TokenKindPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	consumed, err := l.Consume(ctx, value, model.TokenKindPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "u1", consumed.UserID)

	// Second redemption fails.
	_, err = l.Consume(ctx, value, model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	_, err = l.Verify(ctx, value, model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestLedgerConcurrentConsume(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	value, err := l.Issue(ctx, "u1", model.TokenKindEmailVerification, time.Hour)
	require.NoError(t, err)

	const racers = 16
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := l.Consume(ctx, value, model.TokenKindEmailVerification)
			results <- err
		}()
	}
	start.Done()

	var succeeded int
	for i := 0; i < racers; i++ {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	}
	// Whoever wins the race gets the token; everyone else is told it
	// is already spent.
	assert.Equal(t, 1, succeeded)
}

func TestLedgerKindMismatch(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	value, err := l.Issue(ctx, "u1", model.TokenKindEmailVerification, time.Hour)
	require.NoError(t, err)

	_, err = l.Consume(ctx, value, model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	// The failed attempt did not burn the token.
	_, err = l.Consume(ctx, value, model.TokenKindEmailVerification)
	assert.NoError(t, err)
}

func TestLedgerExpiry(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	value, err := l.Issue(ctx, "u1", model.TokenKindPasswordReset, time.Hour)
	require.NoError(t, err)

	l.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = l.Verify(ctx, value, model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	_, err = l.Consume(ctx, value, model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestLedgerUnknownValue(t *testing.T) {
	l := newTestLedger()
	_, err := l.Verify(context.Background(), "nope", model.TokenKindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestLedgerSweep(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	used, err := l.Issue(ctx, "u1", model.TokenKindPasswordReset, time.Hour)
	require.NoError(t, err)
	_, err = l.Consume(ctx, used, model.TokenKindPasswordReset)
	require.NoError(t, err)

	_, err = l.Issue(ctx, "u1", model.TokenKindPasswordReset, time.Minute)
	require.NoError(t, err)

	live, err := l.Issue(ctx, "u1", model.TokenKindPasswordReset, 48*time.Hour)
	require.NoError(t, err)

	l.now = func() time.Time { return time.Now().Add(26 * time.Hour) }

	removed, err := l.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	// The long-lived token survives the sweep.
	_, err = l.Verify(ctx, live, model.TokenKindPasswordReset)
	assert.NoError(t, err)
}
