package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPGenerateAndVerify(t *testing.T) {
	svc := NewTOTPService("identityd-test", 1)

	enrollment, err := svc.Generate("alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.Contains(t, enrollment.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, enrollment.OtpauthURL, "identityd-test")
	assert.True(t, strings.HasPrefix(enrollment.QRCodeDataURL, "data:image/png;base64,"))

	code, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, svc.Verify(enrollment.Secret, code))

	assert.False(t, svc.Verify(enrollment.Secret, "000000"))
	assert.False(t, svc.Verify(enrollment.Secret, ""))
}

func TestTOTPVerifySkew(t *testing.T) {
	svc := NewTOTPService("identityd-test", 1)

	enrollment, err := svc.Generate("alice@example.com")
	require.NoError(t, err)

	// One step behind is inside the tolerated skew.
	code, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC().Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, svc.Verify(enrollment.Secret, code))

	// Five minutes off is not.
	stale, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.False(t, svc.Verify(enrollment.Secret, stale))
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		parts := strings.Split(code, "-")
		require.Len(t, parts, 2)
		assert.Len(t, parts[0], backupCodeLength/2)
		assert.Len(t, parts[1], backupCodeLength/2)
		for _, r := range parts[0] + parts[1] {
			assert.Contains(t, backupCodeAlphabet, string(r))
		}
		assert.False(t, seen[code], "duplicate backup code %q", code)
		seen[code] = true
	}
}
