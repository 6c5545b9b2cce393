package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes user lookup and provisioning operations required by
// the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	// CreateUser provisions an account for a first-time login link sign-in.
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// LoginTokenRepository captures the persistence interactions for emailed
// sign-in links.
type LoginTokenRepository interface {
	CreateLoginToken(ctx context.Context, token LoginToken) error
	ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (LoginToken, error)
	DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error
}

// AllowlistChecker answers whether an email may sign in.
type AllowlistChecker interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthServiceDeps bundles the collaborators of an AuthService.
type AuthServiceDeps struct {
	Credentials    CredentialStore
	Sessions       SessionRepository
	LoginTokens    LoginTokenRepository
	Allowlist      AllowlistChecker
	Mailer         Mailer
	VerifyPassword PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	LoginLinkTTL   time.Duration
	Logger         *slog.Logger
}

// AuthService coordinates password sign-in, login links and session checks.
// Both sign-in paths are gated on the email allow-list.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	loginTokens    LoginTokenRepository
	allowlist      AllowlistChecker
	mailer         Mailer
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	loginLinkTTL   time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.VerifyPassword == nil {
		deps.VerifyPassword = VerifyPassword
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = deps.IDGenerator
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	if deps.LoginLinkTTL <= 0 {
		deps.LoginLinkTTL = 15 * time.Minute
	}
	return &AuthService{
		credentials:    deps.Credentials,
		sessions:       deps.Sessions,
		loginTokens:    deps.LoginTokens,
		allowlist:      deps.Allowlist,
		mailer:         deps.Mailer,
		verifyPassword: deps.VerifyPassword,
		idGenerator:    deps.IDGenerator,
		tokenGenerator: deps.TokenGenerator,
		now:            deps.Now,
		sessionTTL:     deps.SessionTTL,
		loginLinkTTL:   deps.LoginLinkTTL,
		logger:         defaultLogger(deps.Logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates an allow-listed email and password, then issues a
// new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := NormalizeEmail(params.Email)
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	if err = s.ensureAllowlisted(ctx, email); err != nil {
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFoundError(err) {
			err = ErrInvalidCredentials
			return
		}
		return
	}

	if creds.PasswordHash == "" {
		// Link-only accounts never match a password.
		err = ErrInvalidCredentials
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.issueSession(ctx, creds.User.ID)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// RequestLoginLink issues a single-use sign-in token and hands it to the
// mailer. Requests for unknown or non-allow-listed emails are dropped without
// an error so responses cannot be used to enumerate the allow-list.
func (s *AuthService) RequestLoginLink(ctx context.Context, email string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.loginTokens == nil {
		return fmt.Errorf("login token repository not configured")
	}

	normalized := NormalizeEmail(email)
	logger := s.loggerWith(ctx, "RequestLoginLink", "email", normalized)

	if normalized == "" {
		vErr := &ValidationError{}
		vErr.add("email", "email is required")
		return vErr
	}

	if err := s.ensureAllowlisted(ctx, normalized); err != nil {
		if errors.Is(err, ErrNotAllowlisted) {
			logger.WarnContext(ctx, "login link refused for non-allow-listed email")
			return nil
		}
		return err
	}

	now := s.now()
	token := LoginToken{
		ID:        s.idGenerator(),
		Email:     normalized,
		Token:     s.tokenGenerator(),
		ExpiresAt: now.Add(s.loginLinkTTL),
		CreatedAt: now,
	}

	if err := s.loginTokens.CreateLoginToken(ctx, token); err != nil {
		logger.ErrorContext(ctx, "login link issue failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendLoginLink(ctx, normalized, token.Token); err != nil {
			logger.ErrorContext(ctx, "login link delivery failed", "error", err)
			return err
		}
	}

	logger.InfoContext(ctx, "login link issued", "expires_at", token.ExpiresAt)
	return nil
}

// RedeemLoginLink consumes a sign-in token and issues a session. Accounts are
// provisioned on first redemption.
func (s *AuthService) RedeemLoginLink(ctx context.Context, token string) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.loginTokens == nil || s.credentials == nil {
		err = fmt.Errorf("login token repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "RedeemLoginLink", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login link redemption failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "login link redeemed")
	}()

	if trimmed == "" {
		err = ErrLoginLinkInvalid
		return
	}

	var consumed LoginToken
	consumed, err = s.consumeToken(ctx, trimmed)
	if err != nil {
		return
	}

	// The allow-list may have changed since the link was issued.
	if err = s.ensureAllowlisted(ctx, consumed.Email); err != nil {
		return
	}

	var user User
	user, err = s.findOrProvisionUser(ctx, consumed.Email)
	if err != nil {
		return
	}

	var session Session
	session, err = s.issueSession(ctx, user.ID)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: user, Session: session}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if isNotFoundError(err) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if isNotFoundError(err) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if isNotFoundError(err) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
	return
}

// PruneExpired removes sessions and login tokens that are past their expiry.
// The cron scheduler calls this periodically.
func (s *AuthService) PruneExpired(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "PruneExpired")
	now := s.now()

	if s.sessions != nil {
		if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err)
			return err
		}
	}
	if s.loginTokens != nil {
		if err := s.loginTokens.DeleteExpiredLoginTokens(ctx, now); err != nil {
			logger.ErrorContext(ctx, "failed to prune expired login tokens", "error", err)
			return err
		}
	}

	logger.InfoContext(ctx, "expired credentials pruned")
	return nil
}

func (s *AuthService) ensureAllowlisted(ctx context.Context, email string) error {
	if s.allowlist == nil {
		return nil
	}
	allowed, err := s.allowlist.IsAllowed(ctx, email)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAllowlisted
	}
	return nil
}

func (s *AuthService) consumeToken(ctx context.Context, token string) (LoginToken, error) {
	consumed, err := s.loginTokens.ConsumeLoginToken(ctx, token, s.now())
	if err != nil {
		if isNotFoundError(err) {
			return LoginToken{}, ErrLoginLinkInvalid
		}
		return LoginToken{}, err
	}
	return consumed, nil
}

func (s *AuthService) findOrProvisionUser(ctx context.Context, email string) (User, error) {
	creds, err := s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err == nil {
		return creds.User, nil
	}
	if !isNotFoundError(err) {
		return User{}, err
	}

	now := s.now()
	displayName := email
	if at := strings.Index(email, "@"); at > 0 {
		displayName = email[:at]
	}
	provisioned := UserCredentials{
		User: User{
			ID:          s.idGenerator(),
			Email:       email,
			DisplayName: displayName,
			IsAdmin:     false,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	return s.credentials.CreateUser(ctx, provisioned)
}

func (s *AuthService) issueSession(ctx context.Context, userID string) (Session, error) {
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	now := s.now()
	id := s.idGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	return s.sessions.CreateSession(ctx, session)
}
