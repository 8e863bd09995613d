package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"identityd/internal/model"
	"identityd/internal/store"
)

const tokenColumns = `id, user_id, token_hash, kind, expires_at, is_used, created_at`

func (s *Store) CreateAuthToken(ctx context.Context, t model.AuthToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO auth_tokens (id, user_id, token_hash, kind, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, t.ID, t.UserID, t.TokenHash, t.Kind, t.ExpiresAt, t.CreatedAt)
	return err
}

func (s *Store) GetAuthToken(ctx context.Context, tokenHash string, kind model.TokenKind) (*model.AuthToken, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM auth_tokens
		WHERE token_hash = $1 AND kind = $2
	`, tokenHash, kind)

	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// ConsumeAuthToken marks the token used in the same statement that
// checks it is still live. Under concurrent calls exactly one caller
// gets the row back; all others see ErrNotFound.
func (s *Store) ConsumeAuthToken(ctx context.Context, tokenHash string, kind model.TokenKind, now time.Time) (*model.AuthToken, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE auth_tokens
		SET is_used = TRUE
		WHERE token_hash = $1 AND kind = $2 AND is_used = FALSE AND expires_at > $3
		RETURNING `+tokenColumns,
		tokenHash, kind, now)

	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

func (s *Store) DeleteStaleTokens(ctx context.Context, expiredBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM auth_tokens
		WHERE is_used = TRUE OR expires_at < $1
	`, expiredBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*model.AuthToken, error) {
	var t model.AuthToken
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Kind, &t.ExpiresAt, &t.IsUsed, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
