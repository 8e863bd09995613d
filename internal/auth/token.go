package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

// tokenBytes is the entropy of a token value before hex encoding.
const tokenBytes = 32

// Ledger issues and redeems single-use expiring tokens. Callers only
// ever see the plaintext value once, at issue time; the ledger stores
// a hash.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// Issue mints a fresh token for the user and returns its plaintext
// value. Previously issued tokens of the same kind stay valid until
// they expire or are consumed.
func (l *Ledger) Issue(ctx context.Context, userID string, kind model.TokenKind, ttl time.Duration) (string, error) {
	value, err := RandomToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := l.now().UTC()
	t := model.AuthToken{
		UserID:    userID,
		TokenHash: HashString(value),
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := l.store.CreateAuthToken(ctx, t); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return value, nil
}

// Verify returns the ledger record for a live token of the given kind.
// Unknown, expired, consumed and kind-mismatched values all fail the
// same way.
func (l *Ledger) Verify(ctx context.Context, value string, kind model.TokenKind) (*model.AuthToken, error) {
	t, err := l.store.GetAuthToken(ctx, HashString(value), kind)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if t.IsUsed || !l.now().Before(t.ExpiresAt) {
		return nil, ErrInvalidOrExpired
	}
	return t, nil
}

// Consume redeems a token exactly once. The store performs the
// used-flag flip conditionally, so of two concurrent calls only one
// returns the record.
func (l *Ledger) Consume(ctx context.Context, value string, kind model.TokenKind) (*model.AuthToken, error) {
	t, err := l.store.ConsumeAuthToken(ctx, HashString(value), kind, l.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}
	return t, nil
}

// Sweep removes consumed tokens and tokens expired longer ago than the
// retention window.
func (l *Ledger) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	return l.store.DeleteStaleTokens(ctx, l.now().UTC().Add(-retention))
}

// RunSweeper garbage-collects the ledger at the given interval until
// the context is cancelled.
func (l *Ledger) RunSweeper(ctx context.Context, interval, retention time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := l.Sweep(ctx, retention)
			if err != nil {
				log.Error("token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Debug("token sweep", "removed", removed)
			}
		}
	}
}
