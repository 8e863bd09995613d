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

func (s *Store) CreateTwoFactorCredential(ctx context.Context, c model.TwoFactorCredential, codes []model.BackupCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var enabled int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM two_factor_credentials WHERE user_id = $1 AND is_enabled = TRUE
	`, c.UserID).Scan(&enabled)
	if err != nil {
		return err
	}
	if enabled > 0 {
		return store.ErrConflict
	}

	// A restarted setup replaces the previous pending credential.
	if _, err := tx.Exec(ctx, `
		DELETE FROM two_factor_credentials WHERE user_id = $1 AND is_enabled = FALSE
	`, c.UserID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO two_factor_credentials (id, user_id, secret, is_enabled)
		VALUES ($1, $2, $3, FALSE)
	`, c.ID, c.UserID, c.Secret); err != nil {
		return err
	}

	for _, code := range codes {
		if err := insertBackupCode(ctx, tx, c.ID, code); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetTwoFactorCredential(ctx context.Context, userID string) (*model.TwoFactorCredential, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, secret, is_enabled, last_used_at, created_at
		FROM two_factor_credentials
		WHERE user_id = $1
	`, userID)

	var (
		c          model.TwoFactorCredential
		lastUsedAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Secret, &c.IsEnabled, &lastUsedAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.LastUsedAt = lastUsedAt
	return &c, nil
}

func (s *Store) EnableTwoFactorCredential(ctx context.Context, id string) error {
	return s.execOne(ctx, `UPDATE two_factor_credentials SET is_enabled = TRUE WHERE id = $1`, id)
}

func (s *Store) DeleteTwoFactorCredential(ctx context.Context, userID string) error {
	return s.execOne(ctx, `DELETE FROM two_factor_credentials WHERE user_id = $1`, userID)
}

func (s *Store) TouchTwoFactorCredential(ctx context.Context, id string, usedAt time.Time) error {
	return s.execOne(ctx, `UPDATE two_factor_credentials SET last_used_at = $1 WHERE id = $2`, usedAt, id)
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, credentialID string, codes []model.BackupCode) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE credential_id = $1`, credentialID); err != nil {
		return err
	}
	for _, code := range codes {
		if err := insertBackupCode(ctx, tx, credentialID, code); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ConsumeBackupCode burns a single recovery code. The used_at guard
// makes replaying a code a no-op that reports ErrNotFound.
func (s *Store) ConsumeBackupCode(ctx context.Context, credentialID, codeHash string, now time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE backup_codes
		SET used_at = $1
		WHERE credential_id = $2 AND code_hash = $3 AND used_at IS NULL
	`, now, credentialID, codeHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func insertBackupCode(ctx context.Context, tx pgx.Tx, credentialID string, code model.BackupCode) error {
	id := code.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO backup_codes (id, credential_id, code_hash)
		VALUES ($1, $2, $3)
	`, id, credentialID, code.CodeHash)
	return err
}
