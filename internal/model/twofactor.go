package model

import "time"

// TwoFactorCredential holds a user's TOTP enrollment. It is created
// disabled by the setup flow and flipped on only after the user proves
// they can produce a valid code. At most one enabled credential exists
// per user.
type TwoFactorCredential struct {
	ID         string
	UserID     string
	Secret     string
	IsEnabled  bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// BackupCode is a single-use recovery code. Only the SHA-256 hash is
// stored; consuming a code is a conditional update on used_at.
type BackupCode struct {
	ID           string
	CredentialID string
	CodeHash     string
	UsedAt       *time.Time
}
