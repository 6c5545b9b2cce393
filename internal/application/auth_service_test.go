package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type credentialStoreStub struct {
	byEmail map[string]UserCredentials
	byID    map[string]User
	created []UserCredentials

	getErr    error
	createErr error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.getErr != nil {
		return UserCredentials{}, c.getErr
	}
	creds, ok := c.byEmail[email]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := c.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (c *credentialStoreStub) CreateUser(ctx context.Context, credentials UserCredentials) (User, error) {
	if c.createErr != nil {
		return User{}, c.createErr
	}
	c.created = append(c.created, credentials)
	return credentials.User, nil
}

type sessionRepoStub struct {
	sessions map[string]Session
	created  []Session

	createErr error
	pruneErr  error
	pruned    bool
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.created = append(s.created, session)
	if s.sessions == nil {
		s.sessions = make(map[string]Session)
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.pruneErr != nil {
		return s.pruneErr
	}
	s.pruned = true
	return nil
}

type loginTokenRepoStub struct {
	tokens  map[string]LoginToken
	created []LoginToken

	createErr  error
	consumeErr error
	pruned     bool
}

func (l *loginTokenRepoStub) CreateLoginToken(ctx context.Context, token LoginToken) error {
	if l.createErr != nil {
		return l.createErr
	}
	l.created = append(l.created, token)
	if l.tokens == nil {
		l.tokens = make(map[string]LoginToken)
	}
	l.tokens[token.Token] = token
	return nil
}

func (l *loginTokenRepoStub) ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (LoginToken, error) {
	if l.consumeErr != nil {
		return LoginToken{}, l.consumeErr
	}
	stored, ok := l.tokens[token]
	if !ok || !stored.ExpiresAt.After(consumedAt) {
		return LoginToken{}, ErrNotFound
	}
	delete(l.tokens, token)
	return stored, nil
}

func (l *loginTokenRepoStub) DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error {
	l.pruned = true
	return nil
}

type allowlistCheckerStub struct {
	allowed map[string]bool
	err     error
}

func (a *allowlistCheckerStub) IsAllowed(ctx context.Context, email string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.allowed[email], nil
}

type mailerStub struct {
	sent []string
	err  error
}

func (m *mailerStub) SendLoginLink(ctx context.Context, email, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

var authNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func verifyStub(hashedPassword, password string) error {
	if hashedPassword == "hash:"+password {
		return nil
	}
	return ErrInvalidPasswordHash
}

func newAuthDeps() (AuthServiceDeps, *credentialStoreStub, *sessionRepoStub, *loginTokenRepoStub, *mailerStub) {
	creds := &credentialStoreStub{
		byEmail: map[string]UserCredentials{
			"alice@example.com": {
				User:         User{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"},
				PasswordHash: "hash:secret",
			},
		},
		byID: map[string]User{
			"user-1": {ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"},
		},
	}
	sessions := &sessionRepoStub{}
	tokens := &loginTokenRepoStub{}
	mailer := &mailerStub{}

	counter := 0
	deps := AuthServiceDeps{
		Credentials:    creds,
		Sessions:       sessions,
		LoginTokens:    tokens,
		Allowlist:      &allowlistCheckerStub{allowed: map[string]bool{"alice@example.com": true}},
		Mailer:         mailer,
		VerifyPassword: verifyStub,
		IDGenerator:    func() string { counter++; return fmt.Sprintf("id-%d", counter) },
		TokenGenerator: func() string { counter++; return fmt.Sprintf("token-%d", counter) },
		Now:            func() time.Time { return authNow },
		SessionTTL:     24 * time.Hour,
		LoginLinkTTL:   15 * time.Minute,
	}
	return deps, creds, sessions, tokens, mailer
}

func TestAuthService_Authenticate_Succeeds(t *testing.T) {
	t.Parallel()

	deps, _, sessions, _, _ := newAuthDeps()
	svc := NewAuthService(deps)

	result, err := svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "  Alice@Example.com ",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.User.ID != "user-1" {
		t.Fatalf("expected user-1, got %q", result.User.ID)
	}
	if result.Session.Token == "" {
		t.Fatal("expected a session token")
	}
	if !result.Session.ExpiresAt.Equal(authNow.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h session TTL, got %v", result.Session.ExpiresAt)
	}
	if len(sessions.created) != 1 {
		t.Fatalf("expected one issued session, got %d", len(sessions.created))
	}
}

func TestAuthService_Authenticate_RejectsNonAllowlisted(t *testing.T) {
	t.Parallel()

	deps, _, _, _, _ := newAuthDeps()
	deps.Allowlist = &allowlistCheckerStub{}
	svc := NewAuthService(deps)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "alice@example.com",
		Password: "secret",
	})
	if !errors.Is(err, ErrNotAllowlisted) {
		t.Fatalf("expected ErrNotAllowlisted, got %v", err)
	}
}

func TestAuthService_Authenticate_RejectsWrongPassword(t *testing.T) {
	t.Parallel()

	deps, _, _, _, _ := newAuthDeps()
	svc := NewAuthService(deps)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_RejectsUnknownAccount(t *testing.T) {
	t.Parallel()

	deps, _, _, _, _ := newAuthDeps()
	deps.Allowlist = &allowlistCheckerStub{allowed: map[string]bool{"bob@example.com": true}}
	svc := NewAuthService(deps)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "bob@example.com",
		Password: "secret",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_RejectsLinkOnlyAccount(t *testing.T) {
	t.Parallel()

	deps, creds, _, _, _ := newAuthDeps()
	creds.byEmail["alice@example.com"] = UserCredentials{
		User: User{ID: "user-1", Email: "alice@example.com"},
	}
	svc := NewAuthService(deps)

	_, err := svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "alice@example.com",
		Password: "secret",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected a link-only account to reject passwords, got %v", err)
	}
}

func TestAuthService_RequestLoginLink_IssuesAndMails(t *testing.T) {
	t.Parallel()

	deps, _, _, tokens, mailer := newAuthDeps()
	svc := NewAuthService(deps)

	if err := svc.RequestLoginLink(context.Background(), "Alice@Example.com"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(tokens.created) != 1 {
		t.Fatalf("expected one token, got %d", len(tokens.created))
	}
	token := tokens.created[0]
	if token.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", token.Email)
	}
	if !token.ExpiresAt.Equal(authNow.Add(15 * time.Minute)) {
		t.Fatalf("expected 15m link TTL, got %v", token.ExpiresAt)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "alice@example.com" {
		t.Fatalf("expected the link to be mailed, got %v", mailer.sent)
	}
}

func TestAuthService_RequestLoginLink_SilentlyDropsNonAllowlisted(t *testing.T) {
	t.Parallel()

	deps, _, _, tokens, mailer := newAuthDeps()
	deps.Allowlist = &allowlistCheckerStub{}
	svc := NewAuthService(deps)

	// A nil error keeps the HTTP response identical for allowed and refused
	// addresses.
	if err := svc.RequestLoginLink(context.Background(), "stranger@example.com"); err != nil {
		t.Fatalf("expected a silent drop, got %v", err)
	}
	if len(tokens.created) != 0 {
		t.Fatalf("expected no token, got %d", len(tokens.created))
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no mail, got %v", mailer.sent)
	}
}

func TestAuthService_RedeemLoginLink_ProvisionsFirstTimeUser(t *testing.T) {
	t.Parallel()

	deps, creds, _, tokens, _ := newAuthDeps()
	deps.Allowlist = &allowlistCheckerStub{allowed: map[string]bool{
		"newcomer@example.com": true,
	}}
	svc := NewAuthService(deps)

	tokens.tokens = map[string]LoginToken{
		"opaque": {
			ID:        "token-1",
			Email:     "newcomer@example.com",
			Token:     "opaque",
			ExpiresAt: authNow.Add(10 * time.Minute),
		},
	}

	result, err := svc.RedeemLoginLink(context.Background(), "opaque")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(creds.created) != 1 {
		t.Fatalf("expected a provisioned account, got %d", len(creds.created))
	}
	provisioned := creds.created[0]
	if provisioned.PasswordHash != "" {
		t.Fatalf("expected a link-only account without a hash, got %q", provisioned.PasswordHash)
	}
	if provisioned.User.DisplayName != "newcomer" {
		t.Fatalf("expected the local part as display name, got %q", provisioned.User.DisplayName)
	}
	if result.User.Email != "newcomer@example.com" {
		t.Fatalf("expected the provisioned user, got %+v", result.User)
	}
	if result.Session.Token == "" {
		t.Fatal("expected a session token")
	}
}

func TestAuthService_RedeemLoginLink_SingleUse(t *testing.T) {
	t.Parallel()

	deps, _, _, tokens, _ := newAuthDeps()
	svc := NewAuthService(deps)

	tokens.tokens = map[string]LoginToken{
		"opaque": {
			ID:        "token-1",
			Email:     "alice@example.com",
			Token:     "opaque",
			ExpiresAt: authNow.Add(10 * time.Minute),
		},
	}

	if _, err := svc.RedeemLoginLink(context.Background(), "opaque"); err != nil {
		t.Fatalf("expected first redemption to succeed, got %v", err)
	}
	if _, err := svc.RedeemLoginLink(context.Background(), "opaque"); !errors.Is(err, ErrLoginLinkInvalid) {
		t.Fatalf("expected second redemption to fail, got %v", err)
	}
}

func TestAuthService_RedeemLoginLink_RejectsExpired(t *testing.T) {
	t.Parallel()

	deps, _, _, tokens, _ := newAuthDeps()
	svc := NewAuthService(deps)

	tokens.tokens = map[string]LoginToken{
		"opaque": {
			ID:        "token-1",
			Email:     "alice@example.com",
			Token:     "opaque",
			ExpiresAt: authNow.Add(-time.Minute),
		},
	}

	if _, err := svc.RedeemLoginLink(context.Background(), "opaque"); !errors.Is(err, ErrLoginLinkInvalid) {
		t.Fatalf("expected an expired link to be rejected, got %v", err)
	}
}

func TestAuthService_RedeemLoginLink_RechecksAllowlist(t *testing.T) {
	t.Parallel()

	deps, _, _, tokens, _ := newAuthDeps()
	deps.Allowlist = &allowlistCheckerStub{}
	svc := NewAuthService(deps)

	tokens.tokens = map[string]LoginToken{
		"opaque": {
			ID:        "token-1",
			Email:     "alice@example.com",
			Token:     "opaque",
			ExpiresAt: authNow.Add(10 * time.Minute),
		},
	}

	if _, err := svc.RedeemLoginLink(context.Background(), "opaque"); !errors.Is(err, ErrNotAllowlisted) {
		t.Fatalf("expected the allow-list to be re-checked at redemption, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	deps, _, sessions, _, _ := newAuthDeps()
	svc := NewAuthService(deps)

	revokedAt := authNow.Add(-time.Minute)
	sessions.sessions = map[string]Session{
		"live":    {ID: "s1", UserID: "user-1", Token: "live", ExpiresAt: authNow.Add(time.Hour)},
		"expired": {ID: "s2", UserID: "user-1", Token: "expired", ExpiresAt: authNow.Add(-time.Hour)},
		"revoked": {ID: "s3", UserID: "user-1", Token: "revoked", ExpiresAt: authNow.Add(time.Hour), RevokedAt: &revokedAt},
	}

	principal, err := svc.ValidateSession(context.Background(), "live")
	if err != nil {
		t.Fatalf("expected a live session to validate, got %v", err)
	}
	if principal.UserID != "user-1" || principal.Email != "alice@example.com" {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if _, err := svc.ValidateSession(context.Background(), "expired"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "revoked"); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "unknown"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "  "); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for an empty token, got %v", err)
	}
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	deps, _, sessions, _, _ := newAuthDeps()
	svc := NewAuthService(deps)

	sessions.sessions = map[string]Session{
		"live": {ID: "s1", UserID: "user-1", Token: "live", ExpiresAt: authNow.Add(time.Hour)},
	}

	if err := svc.RevokeSession(context.Background(), "live"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if sessions.sessions["live"].RevokedAt == nil {
		t.Fatal("expected the session to carry a revocation stamp")
	}

	if err := svc.RevokeSession(context.Background(), "unknown"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for an unknown token, got %v", err)
	}
}

func TestAuthService_PruneExpired(t *testing.T) {
	t.Parallel()

	deps, _, sessions, tokens, _ := newAuthDeps()
	svc := NewAuthService(deps)

	if err := svc.PruneExpired(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !sessions.pruned || !tokens.pruned {
		t.Fatalf("expected both stores to be pruned, sessions=%v tokens=%v", sessions.pruned, tokens.pruned)
	}
}
