package model

import "time"

// TokenKind identifies which flow an AuthToken proves possession for.
// Verification must match on kind; a password_reset token can never be
// used to verify an email address.
type TokenKind string

const (
	TokenKindEmailVerification  TokenKind = "email_verification"
	TokenKindPasswordReset      TokenKind = "password_reset"
	TokenKindTwoFactorChallenge TokenKind = "two_factor_challenge"
)

// AuthToken is a single-use, expiring proof of possession. Only the
// SHA-256 hash of the token value is stored; the plaintext exists just
// long enough to hand to the caller or embed in an email.
type AuthToken struct {
	ID        string
	UserID    string
	TokenHash string
	Kind      TokenKind
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}
