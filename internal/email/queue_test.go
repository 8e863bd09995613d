package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identityd/internal/model"
	"identityd/internal/store/memory"
)

type delivery struct {
	To       string
	From     string
	Subject  string
	HTMLBody string
	TextBody string
}

type fakeSender struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (f *fakeSender) Send(_ context.Context, to, from, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, delivery{To: to, From: from, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return nil
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

func newTestQueue(t *testing.T, cfg QueueConfig) (*Queue, *memory.Store, *fakeSender) {
	t.Helper()
	st := memory.New()
	sender := &fakeSender{}
	if cfg.From == "" {
		cfg.From = "noreply@example.com"
	}
	q := NewQueue(st, sender, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return q, st, sender
}

func pendingIDs(t *testing.T, q *Queue, st *memory.Store) []model.QueuedEmail {
	t.Helper()
	due, err := st.ClaimDueEmails(context.Background(), 100, q.now().UTC().Add(time.Hour), 100, 0)
	require.NoError(t, err)
	return due
}

func TestQueueEnqueueResolvesTemplate(t *testing.T) {
	q, st, _ := newTestQueue(t, QueueConfig{})
	ctx := context.Background()

	err := q.Enqueue(ctx, "alice@example.com", "email_verification", map[string]string{
		"username": "alice",
		"link":     "https://example.com/verify?token=abc",
		"hours":    "24",
	})
	require.NoError(t, err)

	rows := pendingIDs(t, q, st)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "alice@example.com", row.To)
	assert.Equal(t, "noreply@example.com", row.From)
	assert.Equal(t, "email_verification", row.TemplateID)
	assert.Equal(t, model.EmailStatusSending, row.Status)
	// Bodies are stored raw; substitution happens at delivery time.
	assert.Contains(t, row.HTMLBody, "{{link}}")
	assert.Contains(t, row.TextBody, "{{link}}")
}

func TestQueueEnqueueUnknownTemplate(t *testing.T) {
	q, _, _ := newTestQueue(t, QueueConfig{})
	err := q.Enqueue(context.Background(), "alice@example.com", "no_such_template", nil)
	assert.Error(t, err)
}

func TestQueueEnqueueLocaleFallback(t *testing.T) {
	q, st, _ := newTestQueue(t, QueueConfig{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a@example.com", "welcome", map[string]string{
		"username": "alice",
		"locale":   "de",
	}))
	require.NoError(t, q.Enqueue(ctx, "b@example.com", "welcome", map[string]string{
		"username": "bob",
		"locale":   "xx-unknown",
	}))

	rows := pendingIDs(t, q, st)
	require.Len(t, rows, 2)

	subjects := map[string]string{}
	for _, row := range rows {
		subjects[row.To] = row.Subject
	}
	// "de" resolves the German catalog; an unsupported tag falls back
	// to English.
	assert.Equal(t, "Willkommen", subjects["a@example.com"])
	assert.Equal(t, "Welcome aboard", subjects["b@example.com"])
}

func TestQueueProcessOnceDelivers(t *testing.T) {
	q, st, sender := newTestQueue(t, QueueConfig{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "alice@example.com", "welcome", map[string]string{
		"username": "alice",
	}))

	n, err := q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, sender.count())

	d := sender.deliveries[0]
	assert.Equal(t, "alice@example.com", d.To)
	assert.Contains(t, d.TextBody, "alice")
	assert.NotContains(t, d.TextBody, "{{username}}")

	rows := pendingIDs(t, q, st)
	assert.Empty(t, rows, "sent rows are not claimed again")

	// A second pass finds nothing.
	n, err = q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueRetriesWithBackoff(t *testing.T) {
	q, _, sender := newTestQueue(t, QueueConfig{MaxAttempts: 3, RetryDelay: 5 * time.Minute})
	ctx := context.Background()

	base := time.Now().UTC()
	q.now = func() time.Time { return base }

	require.NoError(t, q.Enqueue(ctx, "alice@example.com", "welcome", map[string]string{"username": "alice"}))

	sender.setErr(errors.New("smtp unavailable"))

	n, err := q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, sender.count())

	// Before the retry delay the row stays parked.
	q.now = func() time.Time { return base.Add(time.Minute) }
	n, err = q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// After the delay it is retried and succeeds.
	sender.setErr(nil)
	q.now = func() time.Time { return base.Add(6 * time.Minute) }
	n, err = q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sender.count())
}

func TestQueueStopsAfterMaxAttempts(t *testing.T) {
	q, st, sender := newTestQueue(t, QueueConfig{MaxAttempts: 2, RetryDelay: time.Minute})
	ctx := context.Background()

	base := time.Now().UTC()
	q.now = func() time.Time { return base }

	require.NoError(t, q.Enqueue(ctx, "alice@example.com", "welcome", map[string]string{"username": "alice"}))
	sender.setErr(errors.New("smtp unavailable"))

	for i := 0; i < 2; i++ {
		n, err := q.ProcessOnce(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n, "attempt %d", i+1)
		base = base.Add(2 * time.Minute)
		q.now = func() time.Time { return base }
	}

	// Budget exhausted: the row stays failed and is never claimed again.
	n, err := q.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := st.ClaimDueEmails(ctx, 100, base.Add(time.Hour), 100, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Attempts)
	require.NotNil(t, rows[0].Error)
	assert.Contains(t, *rows[0].Error, "smtp unavailable")
}
