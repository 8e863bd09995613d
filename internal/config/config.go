package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	BaseURL     string
	DatabaseURL string
	RedisURL    string
	LogFile     string

	JWTSecret  string
	BcryptCost int

	SessionTTL           time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	ChallengeTokenTTL    time.Duration
	ResendCooldown       time.Duration
	TokenSweepInterval   time.Duration
	TokenRetention       time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	RequireEmailVerification bool
	TOTPIssuer               string
	TOTPSkewSteps            int
	BackupCodeCount          int

	Email EmailConfig
	Queue QueueConfig
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type QueueConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryDelay   time.Duration
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	cfg := Config{
		Port:        getenvDefault("PORT", "8080"),
		BaseURL:     getenvDefault("APP_BASE_URL", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:     getenvDefault("LOG_FILE", "logs/server.log"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		BcryptCost: parseInt(os.Getenv("BCRYPT_COST"), 12),

		SessionTTL:           parseDuration(os.Getenv("SESSION_TTL"), 7*24*time.Hour),
		VerificationTokenTTL: parseDuration(os.Getenv("VERIFICATION_TOKEN_TTL"), 24*time.Hour),
		ResetTokenTTL:        parseDuration(os.Getenv("RESET_TOKEN_TTL"), time.Hour),
		ChallengeTokenTTL:    parseDuration(os.Getenv("CHALLENGE_TOKEN_TTL"), 5*time.Minute),
		ResendCooldown:       parseDuration(os.Getenv("RESEND_COOLDOWN"), time.Minute),
		TokenSweepInterval:   parseDuration(os.Getenv("TOKEN_SWEEP_INTERVAL"), time.Hour),
		TokenRetention:       parseDuration(os.Getenv("TOKEN_RETENTION"), 24*time.Hour),

		RateLimitMax:    parseInt(os.Getenv("RATE_LIMIT_MAX"), 5),
		RateLimitWindow: parseDuration(os.Getenv("RATE_LIMIT_WINDOW"), 15*time.Minute),

		RequireEmailVerification: !parseBool(os.Getenv("NO_EMAIL_VERIFY")),
		TOTPIssuer:               getenvDefault("TOTP_ISSUER", "IdentityService"),
		TOTPSkewSteps:            parseInt(os.Getenv("TOTP_SKEW_STEPS"), 2),
		BackupCodeCount:          parseInt(os.Getenv("BACKUP_CODE_COUNT"), 10),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     parseInt(clean(os.Getenv("EMAIL_SERVER_PORT")), 587),
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	cfg.Queue = QueueConfig{
		PollInterval: parseDuration(os.Getenv("QUEUE_POLL_INTERVAL"), 30*time.Second),
		BatchSize:    parseInt(os.Getenv("QUEUE_BATCH_SIZE"), 10),
		MaxAttempts:  parseInt(os.Getenv("QUEUE_MAX_ATTEMPTS"), 3),
		RetryDelay:   parseDuration(os.Getenv("QUEUE_RETRY_DELAY"), 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return n
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
