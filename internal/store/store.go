// Package store defines the persistence contract for the identity core.
// Implementations must make the conditional mutations (token consumption,
// backup-code consumption, queue claims) atomic: a single guarded update,
// never a read followed by a write.
package store

import (
	"context"
	"errors"
	"time"

	"identityd/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

type Store interface {
	// Users.
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetUserActive(ctx context.Context, userID string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// Single-use auth tokens. ConsumeAuthToken flips is_used in one
	// conditional update and returns ErrNotFound unless the token was
	// live at that instant; concurrent consumers cannot both succeed.
	CreateAuthToken(ctx context.Context, t model.AuthToken) error
	GetAuthToken(ctx context.Context, tokenHash string, kind model.TokenKind) (*model.AuthToken, error)
	ConsumeAuthToken(ctx context.Context, tokenHash string, kind model.TokenKind, now time.Time) (*model.AuthToken, error)
	DeleteStaleTokens(ctx context.Context, expiredBefore time.Time) (int64, error)

	// Two-factor credentials and backup codes.
	CreateTwoFactorCredential(ctx context.Context, c model.TwoFactorCredential, codes []model.BackupCode) error
	GetTwoFactorCredential(ctx context.Context, userID string) (*model.TwoFactorCredential, error)
	EnableTwoFactorCredential(ctx context.Context, id string) error
	DeleteTwoFactorCredential(ctx context.Context, userID string) error
	TouchTwoFactorCredential(ctx context.Context, id string, usedAt time.Time) error
	ReplaceBackupCodes(ctx context.Context, credentialID string, codes []model.BackupCode) error
	ConsumeBackupCode(ctx context.Context, credentialID, codeHash string, now time.Time) error

	// Mail queue. ClaimDueEmails transitions matching rows to the
	// sending state in the same statement that selects them, acting as
	// a lease so two processors can never pick up the same row.
	EnqueueEmail(ctx context.Context, e model.QueuedEmail) error
	GetQueuedEmail(ctx context.Context, id string) (*model.QueuedEmail, error)
	ClaimDueEmails(ctx context.Context, limit int, now time.Time, maxAttempts int, retryDelay time.Duration) ([]model.QueuedEmail, error)
	MarkEmailSent(ctx context.Context, id string, at time.Time) error
	MarkEmailFailed(ctx context.Context, id string, at time.Time, sendErr string) error
}
