package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/identityd")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.VerificationTokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeTokenTTL)
	assert.Equal(t, time.Minute, cfg.ResendCooldown)
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.True(t, cfg.RequireEmailVerification)
	assert.Equal(t, 10, cfg.BackupCodeCount)
	assert.Equal(t, 30*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.False(t, cfg.Email.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("NO_EMAIL_VERIFY", "true")
	t.Setenv("RESEND_COOLDOWN", "5m")
	t.Setenv("QUEUE_RETRY_DELAY", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.RequireEmailVerification)
	assert.Equal(t, 5*time.Minute, cfg.ResendCooldown)
	assert.Equal(t, 90*time.Second, cfg.Queue.RetryDelay)
}

func TestLoadEmailConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("EMAIL_SERVER_HOST", `"smtp.example.com"`)
	t.Setenv("EMAIL_SERVER_PORT", "465")
	t.Setenv("EMAIL_FROM", "noreply@example.com")
	t.Setenv("EMAIL_SERVER_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.Equal(t, 465, cfg.Email.Port)
	assert.True(t, cfg.Email.Secure)
	assert.True(t, cfg.Email.Enabled())
}

func TestLoadRequiredVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/identityd")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	assert.True(t, parseBool("1"))
	assert.True(t, parseBool("TRUE"))
	assert.False(t, parseBool("no"))
	assert.False(t, parseBool(""))

	assert.Equal(t, 7, parseInt("7", 3))
	assert.Equal(t, 3, parseInt("x", 3))

	assert.Equal(t, time.Minute, parseDuration("1m", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("bogus", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("-5s", time.Hour))
}
