package auth

import "errors"

// The generic errors are deliberately indistinguishable from related
// failure modes: a caller cannot tell an unknown email from a wrong
// password, or an expired token from one that never existed.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrExpired    = errors.New("invalid or expired token")
	ErrInvalidTwoFactor    = errors.New("invalid two-factor code")
	ErrRateLimited         = errors.New("too many attempts")
	ErrAccountNotActivated = errors.New("account not activated")
	ErrConflict            = errors.New("account already exists")
	ErrAlreadyEnabled      = errors.New("two-factor authentication already enabled")
	ErrSetupNotFound       = errors.New("two-factor setup not started")
	ErrInternal            = errors.New("internal error")
)

// ValidationError carries a specific, actionable message about bad
// input shape. Unlike the generic errors above it is safe to surface
// verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErr(msg string) error {
	return &ValidationError{Msg: msg}
}
