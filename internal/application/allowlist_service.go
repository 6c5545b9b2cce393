package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// AllowlistRepository captures the persistence interactions needed by the service.
type AllowlistRepository interface {
	CreateEntry(ctx context.Context, entry AllowlistEntry) error
	GetEntry(ctx context.Context, email string) (AllowlistEntry, error)
	ListEntries(ctx context.Context) ([]AllowlistEntry, error)
	DeleteEntry(ctx context.Context, email string) error
}

// AllowlistService manages the sign-in allow-list. All mutations require an
// administrator. Emails are normalized to trimmed lowercase before storage
// and lookup.
type AllowlistService struct {
	entries AllowlistRepository
	now     func() time.Time
	logger  *slog.Logger
}

// NewAllowlistService wires dependencies for allow-list operations.
func NewAllowlistService(entries AllowlistRepository, now func() time.Time) *AllowlistService {
	return NewAllowlistServiceWithLogger(entries, now, nil)
}

// NewAllowlistServiceWithLogger constructs an AllowlistService with a specified logger.
func NewAllowlistServiceWithLogger(entries AllowlistRepository, now func() time.Time, logger *slog.Logger) *AllowlistService {
	if now == nil {
		now = time.Now
	}
	return &AllowlistService{
		entries: entries,
		now:     now,
		logger:  defaultLogger(logger),
	}
}

func (s *AllowlistService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AllowlistService", operation, attrs...)
}

// NormalizeEmail lowercases and trims an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddEntry validates and stores a new allow-list entry.
func (s *AllowlistService) AddEntry(ctx context.Context, principal Principal, input AllowlistInput) (entry AllowlistEntry, err error) {
	if s == nil {
		err = fmt.Errorf("AllowlistService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("allowlist repository not configured")
		return
	}

	email := NormalizeEmail(input.Email)
	logger := s.loggerWith(ctx, "AddEntry",
		"email", email,
		"user_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "allowlist add failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "allowlist entry added")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	validateEmail(email, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	entry = AllowlistEntry{
		Email:     email,
		Notes:     input.Notes,
		CreatedAt: s.now(),
	}

	if err = s.entries.CreateEntry(ctx, entry); err != nil {
		err = mapAllowlistRepoError(err)
		entry = AllowlistEntry{}
		return
	}
	return
}

// ListEntries enumerates the allow-list for administrators.
func (s *AllowlistService) ListEntries(ctx context.Context, principal Principal) ([]AllowlistEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("AllowlistService is nil")
	}
	if s.entries == nil {
		return nil, fmt.Errorf("allowlist repository not configured")
	}

	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return nil, mapAllowlistRepoError(err)
	}
	return entries, nil
}

// IsAllowed reports whether the email may sign in.
func (s *AllowlistService) IsAllowed(ctx context.Context, email string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("AllowlistService is nil")
	}
	if s.entries == nil {
		return false, fmt.Errorf("allowlist repository not configured")
	}

	_, err := s.entries.GetEntry(ctx, NormalizeEmail(email))
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveEntry deletes an allow-list entry. Existing accounts and sessions are
// untouched; only future sign-ins are blocked.
func (s *AllowlistService) RemoveEntry(ctx context.Context, principal Principal, email string) error {
	if s == nil {
		return fmt.Errorf("AllowlistService is nil")
	}
	if s.entries == nil {
		return fmt.Errorf("allowlist repository not configured")
	}

	normalized := NormalizeEmail(email)
	logger := s.loggerWith(ctx, "RemoveEntry",
		"email", normalized,
		"user_id", principal.UserID,
	)

	if !principal.IsAdmin {
		logger.ErrorContext(ctx, "allowlist remove failed", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if err := s.entries.DeleteEntry(ctx, normalized); err != nil {
		err = mapAllowlistRepoError(err)
		logger.ErrorContext(ctx, "allowlist remove failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "allowlist entry removed")
	return nil
}

func validateEmail(email string, vErr *ValidationError) {
	if email == "" {
		vErr.add("email", "email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "must be a valid email address")
	}
}

func mapAllowlistRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
