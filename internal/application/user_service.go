package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const minPasswordLength = 8

// UserRepository captures the persistence interactions needed by the service.
// It is a superset of CredentialStore so a single adapter serves both.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	UpdateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService manages accounts. All operations require an administrator.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for user administration.
func NewUserService(users UserRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hashPassword, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser provisions an account with an initial password.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	email := NormalizeEmail(params.Input.Email)
	logger := s.loggerWith(ctx, "CreateUser",
		"email", email,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("created_user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	validateEmail(email, vErr)
	if strings.TrimSpace(params.Input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if len(params.Input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Input.Password)
	if err != nil {
		return
	}

	now := s.now()
	credentials := UserCredentials{
		User: User{
			ID:          s.idGenerator(),
			Email:       email,
			DisplayName: strings.TrimSpace(params.Input.DisplayName),
			IsAdmin:     params.Input.IsAdmin,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: hash,
	}

	user, err = s.users.CreateUser(ctx, credentials)
	if err != nil {
		err = mapUserRepoError(err)
		user = User{}
		return
	}
	return
}

// UpdateUser rewrites account attributes. A blank password keeps the current
// one.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"target_user_id", params.UserID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	email := NormalizeEmail(params.Input.Email)
	vErr := &ValidationError{}
	validateEmail(email, vErr)
	if strings.TrimSpace(params.Input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if params.Input.Password != "" && len(params.Input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hash := ""
	if params.Input.Password != "" {
		hash, err = s.hashPassword(params.Input.Password)
		if err != nil {
			return
		}
	}

	updated := existing
	updated.Email = email
	updated.DisplayName = strings.TrimSpace(params.Input.DisplayName)
	updated.IsAdmin = params.Input.IsAdmin
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, UserCredentials{User: updated, PasswordHash: hash})
	if err != nil {
		err = mapUserRepoError(err)
		user = User{}
		return
	}
	return
}

// GetUser retrieves an account for administrators.
func (s *UserService) GetUser(ctx context.Context, principal Principal, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	if !principal.IsAdmin && principal.UserID != id {
		return User{}, ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers enumerates accounts for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return users, nil
}

// DeleteUser removes an account. Accounts still owning reservations are
// protected by the foreign key and reported as a validation issue.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"target_user_id", id,
		"user_id", principal.UserID,
	)

	if !principal.IsAdmin {
		logger.ErrorContext(ctx, "user delete failed", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if principal.UserID == id {
		vErr := &ValidationError{}
		vErr.add("user_id", "cannot delete your own account")
		logger.ErrorContext(ctx, "user delete failed", "error", vErr, "error_kind", ErrorKind(vErr))
		return vErr
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "user delete failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("user_id", "user still owns reservations")
		return vErr
	}
	return err
}
