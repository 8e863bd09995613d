package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

// MailEnqueuer pushes a templated email onto the delivery queue.
// Dispatch is asynchronous: a queue failure is logged but never fails
// the auth flow that triggered it.
type MailEnqueuer interface {
	Enqueue(ctx context.Context, to, templateID string, data map[string]string) error
}

type ServiceConfig struct {
	BaseURL                  string
	RequireEmailVerification bool
	SessionTTL               time.Duration
	VerificationTokenTTL     time.Duration
	ResetTokenTTL            time.Duration
	ChallengeTokenTTL        time.Duration
	BackupCodeCount          int
	ResendCooldown           time.Duration
}

func (c *ServiceConfig) applyDefaults() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	if c.VerificationTokenTTL <= 0 {
		c.VerificationTokenTTL = 24 * time.Hour
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = time.Hour
	}
	if c.ChallengeTokenTTL <= 0 {
		c.ChallengeTokenTTL = 5 * time.Minute
	}
	if c.BackupCodeCount <= 0 {
		c.BackupCodeCount = 10
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = time.Minute
	}
}

// Service orchestrates the account and two-factor flows. It owns every
// cross-component invariant; the HTTP layer only decodes requests and
// maps the errors it returns.
type Service struct {
	store    store.Store
	sessions *SessionStore
	limiter  *RateLimiter
	ledger   *Ledger
	totp     TOTPVerifier
	hasher   PasswordHasher
	bearer   *TokenManager
	mail     MailEnqueuer
	cfg      ServiceConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewService(st store.Store, sessions *SessionStore, limiter *RateLimiter, ledger *Ledger, totp TOTPVerifier, hasher PasswordHasher, bearer *TokenManager, mail MailEnqueuer, cfg ServiceConfig, log *slog.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		store:    st,
		sessions: sessions,
		limiter:  limiter,
		ledger:   ledger,
		totp:     totp,
		hasher:   hasher,
		bearer:   bearer,
		mail:     mail,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName *string
	Locale      string
}

type RegisterResult struct {
	User                 model.User
	RequiresVerification bool
	Session              *Session
	Bearer               string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if !validEmail(in.Email) {
		return nil, validationErr("invalid email address")
	}
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	// Pre-checks give a precise conflict answer; the unique indexes in
	// the store settle concurrent registrations for the same identity.
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("register: lookup email", err)
	}
	if _, err := s.store.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("register: lookup username", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal("register: hash password", err)
	}

	user, err := s.store.CreateUser(ctx, model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         model.RoleUser,
		IsActive:     !s.cfg.RequireEmailVerification,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, s.internal("register: create user", err)
	}

	result := &RegisterResult{User: user, RequiresVerification: s.cfg.RequireEmailVerification}

	if s.cfg.RequireEmailVerification {
		if err := s.sendVerification(ctx, user, in.Locale); err != nil {
			return nil, s.internal("register: issue verification", err)
		}
		return result, nil
	}

	s.enqueueMail(ctx, user.Email, "welcome", map[string]string{
		"username": user.Username,
		"locale":   in.Locale,
	})

	sess, bearer, err := s.createSession(ctx, user, "", "")
	if err != nil {
		return nil, s.internal("register: create session", err)
	}
	result.Session = sess
	result.Bearer = bearer
	return result, nil
}

type LoginInput struct {
	Email          string
	Password       string
	ChallengeToken string
	Code           string
	IP             string
	UserAgent      string
	Locale         string
}

type LoginResult struct {
	RequiresTwoFactor bool
	ChallengeToken    string
	User              model.User
	Session           *Session
	Bearer            string
}

// Login runs the credential, activation and two-factor checks in
// order. When two-factor is enabled and no code is supplied it stops
// short of authentication and hands back a challenge token instead.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		return nil, s.internal("login: rate check", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, s.internal("login: lookup user", err)
		}
		// Unknown user counts as a failed attempt, same as a wrong
		// password, so the limiter cannot be used as an oracle.
		s.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		s.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountNotActivated
	}

	cred, err := s.store.GetTwoFactorCredential(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("login: lookup 2fa", err)
	}

	if cred != nil && cred.IsEnabled {
		if in.ChallengeToken == "" || in.Code == "" {
			challenge, err := s.ledger.Issue(ctx, user.ID, model.TokenKindTwoFactorChallenge, s.cfg.ChallengeTokenTTL)
			if err != nil {
				return nil, s.internal("login: issue challenge", err)
			}
			return &LoginResult{RequiresTwoFactor: true, ChallengeToken: challenge}, nil
		}

		challenge, err := s.ledger.Verify(ctx, in.ChallengeToken, model.TokenKindTwoFactorChallenge)
		if err != nil || challenge.UserID != user.ID {
			s.recordFailure(ctx, email)
			return nil, ErrInvalidTwoFactor
		}

		if !s.verifyTwoFactorCode(ctx, cred, in.Code) {
			s.recordFailure(ctx, email)
			return nil, ErrInvalidTwoFactor
		}

		// Consume after the code checks out; of two concurrent logins
		// racing on the same challenge only one gets past this point.
		if _, err := s.ledger.Consume(ctx, in.ChallengeToken, model.TokenKindTwoFactorChallenge); err != nil {
			return nil, ErrInvalidTwoFactor
		}
		if err := s.store.TouchTwoFactorCredential(ctx, cred.ID, s.now().UTC()); err != nil {
			s.log.Warn("login: touch 2fa credential failed", "error", err)
		}
	}

	sess, bearer, err := s.createSession(ctx, *user, in.IP, in.UserAgent)
	if err != nil {
		return nil, s.internal("login: create session", err)
	}

	if err := s.limiter.Clear(ctx, email); err != nil {
		s.log.Warn("login: clear limiter failed", "error", err)
	}

	s.enqueueMail(ctx, user.Email, "signin_alert", map[string]string{
		"username": user.Username,
		"time":     sess.LoginTime.Format(time.RFC1123),
		"ip":       in.IP,
		"device":   in.UserAgent,
		"locale":   in.Locale,
	})

	return &LoginResult{User: *user, Session: sess, Bearer: bearer}, nil
}

func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	return s.sessions.Delete(ctx, userID, sessionID)
}

// VerifyEmail redeems an email_verification token and activates the
// account. Consuming first keeps the operation single-shot even under
// concurrent submissions of the same link.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	t, err := s.ledger.Consume(ctx, token, model.TokenKindEmailVerification)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpired) {
			return ErrInvalidOrExpired
		}
		return s.internal("verify email: consume token", err)
	}
	if err := s.store.SetUserActive(ctx, t.UserID); err != nil {
		return s.internal("verify email: activate user", err)
	}
	return nil
}

// ResendVerification re-issues the verification email. The response
// is identical whether or not the account exists.
func (s *Service) ResendVerification(ctx context.Context, email, locale string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return validationErr("invalid email address")
	}

	cooldownKey := "resend:" + strings.ToLower(email)
	if ttl := s.limiter.CooldownTTL(ctx, cooldownKey); ttl > 0 {
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return s.internal("resend verification: lookup user", err)
	}
	if !user.IsActive {
		if err := s.sendVerification(ctx, *user, locale); err != nil {
			return s.internal("resend verification: issue token", err)
		}
	}
	s.limiter.SetCooldown(ctx, cooldownKey, s.cfg.ResendCooldown)
	return nil
}

// RequestPasswordReset issues a password_reset token and mails it
// out-of-band. The caller gets the same nil result for unknown
// addresses; the token value never leaves through this path.
func (s *Service) RequestPasswordReset(ctx context.Context, email, locale string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return validationErr("invalid email address")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return s.internal("password reset request: lookup user", err)
	}

	token, err := s.ledger.Issue(ctx, user.ID, model.TokenKindPasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return s.internal("password reset request: issue token", err)
	}

	s.enqueueMail(ctx, user.Email, "password_reset", map[string]string{
		"username": user.Username,
		"link":     fmt.Sprintf("%s/reset-password?token=%s", s.cfg.BaseURL, token),
		"hours":    fmt.Sprintf("%d", int(s.cfg.ResetTokenTTL.Hours())),
		"locale":   locale,
	})
	return nil
}

// ResetPassword redeems the reset token, swaps the hash and orphans
// every existing session. Sessions are invalidated last: a crash in
// between leaves an old session briefly alive, never a half-applied
// password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	t, err := s.ledger.Consume(ctx, token, model.TokenKindPasswordReset)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpired) {
			return ErrInvalidOrExpired
		}
		return s.internal("password reset: consume token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal("password reset: hash password", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, t.UserID, hash); err != nil {
		return s.internal("password reset: update hash", err)
	}

	if err := s.sessions.DeleteByUser(ctx, t.UserID); err != nil {
		return s.internal("password reset: invalidate sessions", err)
	}
	return nil
}

type TwoFactorSetup struct {
	Secret        string
	OtpauthURL    string
	QRCodeDataURL string
	BackupCodes   []string
}

// SetupTwoFactor creates a disabled credential and returns the secret,
// provisioning URI and backup codes. They are shown exactly once; only
// hashes are retained.
func (s *Service) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.internal("2fa setup: lookup user", err)
	}

	if cred, err := s.store.GetTwoFactorCredential(ctx, userID); err == nil && cred.IsEnabled {
		return nil, ErrAlreadyEnabled
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("2fa setup: lookup credential", err)
	}

	enrollment, err := s.totp.Generate(user.Email)
	if err != nil {
		return nil, s.internal("2fa setup: generate secret", err)
	}

	codes, err := GenerateBackupCodes(s.cfg.BackupCodeCount)
	if err != nil {
		return nil, s.internal("2fa setup: generate backup codes", err)
	}

	records := make([]model.BackupCode, 0, len(codes))
	for _, code := range codes {
		records = append(records, model.BackupCode{CodeHash: HashString(normalizeCode(code))})
	}

	cred := model.TwoFactorCredential{UserID: userID, Secret: enrollment.Secret}
	if err := s.store.CreateTwoFactorCredential(ctx, cred, records); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyEnabled
		}
		return nil, s.internal("2fa setup: store credential", err)
	}

	return &TwoFactorSetup{
		Secret:        enrollment.Secret,
		OtpauthURL:    enrollment.OtpauthURL,
		QRCodeDataURL: enrollment.QRCodeDataURL,
		BackupCodes:   codes,
	}, nil
}

// EnableTwoFactor flips the pending credential on once the user proves
// their authenticator produces matching codes.
func (s *Service) EnableTwoFactor(ctx context.Context, userID, code string) error {
	cred, err := s.store.GetTwoFactorCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSetupNotFound
		}
		return s.internal("2fa enable: lookup credential", err)
	}
	if cred.IsEnabled {
		return ErrAlreadyEnabled
	}
	if !s.totp.Verify(cred.Secret, code) {
		return ErrInvalidTwoFactor
	}
	if err := s.store.EnableTwoFactorCredential(ctx, cred.ID); err != nil {
		return s.internal("2fa enable: enable credential", err)
	}
	return nil
}

// DisableTwoFactor removes the credential after a valid code or backup
// code confirms the caller still controls the second factor.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, code string) error {
	cred, err := s.store.GetTwoFactorCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSetupNotFound
		}
		return s.internal("2fa disable: lookup credential", err)
	}
	if !s.verifyTwoFactorCode(ctx, cred, code) {
		return ErrInvalidTwoFactor
	}
	if err := s.store.DeleteTwoFactorCredential(ctx, userID); err != nil {
		return s.internal("2fa disable: delete credential", err)
	}
	return nil
}

// RegenerateBackupCodes replaces every backup code with a fresh set.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	cred, err := s.store.GetTwoFactorCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSetupNotFound
		}
		return nil, s.internal("backup codes: lookup credential", err)
	}
	if !cred.IsEnabled {
		return nil, ErrSetupNotFound
	}
	if !s.totp.Verify(cred.Secret, code) {
		return nil, ErrInvalidTwoFactor
	}

	codes, err := GenerateBackupCodes(s.cfg.BackupCodeCount)
	if err != nil {
		return nil, s.internal("backup codes: generate", err)
	}
	records := make([]model.BackupCode, 0, len(codes))
	for _, c := range codes {
		records = append(records, model.BackupCode{CodeHash: HashString(normalizeCode(c))})
	}
	if err := s.store.ReplaceBackupCodes(ctx, cred.ID, records); err != nil {
		return nil, s.internal("backup codes: replace", err)
	}
	return codes, nil
}

// verifyTwoFactorCode accepts either a current TOTP code or an unused
// backup code. Backup codes are burned on use.
func (s *Service) verifyTwoFactorCode(ctx context.Context, cred *model.TwoFactorCredential, code string) bool {
	code = normalizeCode(code)
	if code == "" {
		return false
	}
	if s.totp.Verify(cred.Secret, code) {
		return true
	}
	err := s.store.ConsumeBackupCode(ctx, cred.ID, HashString(code), s.now().UTC())
	return err == nil
}

// User returns the profile for an authenticated caller.
func (s *Service) User(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal("user lookup", err)
	}
	return user, nil
}

func (s *Service) createSession(ctx context.Context, user model.User, ip, userAgent string) (*Session, string, error) {
	bearer, err := s.bearer.Sign(user.ID, user.Username, user.Role, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	sess := Session{
		ID:        NewSessionID(),
		UserID:    user.ID,
		Role:      user.Role,
		Bearer:    bearer,
		IP:        ip,
		UserAgent: userAgent,
		LoginTime: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, "", err
	}
	return &sess, bearer, nil
}

func (s *Service) sendVerification(ctx context.Context, user model.User, locale string) error {
	token, err := s.ledger.Issue(ctx, user.ID, model.TokenKindEmailVerification, s.cfg.VerificationTokenTTL)
	if err != nil {
		return err
	}
	s.enqueueMail(ctx, user.Email, "email_verification", map[string]string{
		"username": user.Username,
		"link":     fmt.Sprintf("%s/verify-email?token=%s", s.cfg.BaseURL, token),
		"hours":    fmt.Sprintf("%d", int(s.cfg.VerificationTokenTTL.Hours())),
		"locale":   locale,
	})
	return nil
}

func (s *Service) enqueueMail(ctx context.Context, to, templateID string, data map[string]string) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Enqueue(ctx, to, templateID, data); err != nil {
		s.log.Error("enqueue email failed", "template", templateID, "error", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, identifier string) {
	if err := s.limiter.RecordFailure(ctx, identifier); err != nil {
		s.log.Warn("record auth failure", "error", err)
	}
}

func (s *Service) internal(op string, err error) error {
	s.log.Error(op, "error", err)
	return fmt.Errorf("%w: %s", ErrInternal, op)
}
