package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// LoginTokenRepository implements persistence.LoginTokenRepository on SQLite.
type LoginTokenRepository struct {
	db *DB
}

// NewLoginTokenRepository constructs a LoginTokenRepository.
func NewLoginTokenRepository(db *DB) *LoginTokenRepository {
	return &LoginTokenRepository{db: db}
}

// CreateLoginToken inserts a new single-use token.
func (r *LoginTokenRepository) CreateLoginToken(ctx context.Context, token persistence.LoginToken) error {
	if token.ID == "" || token.Email == "" || token.Token == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO login_tokens (id, email, token, expires_at, created_at, consumed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.Email,
		token.Token,
		formatTime(token.ExpiresAt),
		formatTime(token.CreatedAt),
		formatNullableTime(token.ConsumedAt),
	)
	return mapError(err)
}

// ConsumeLoginToken atomically marks an unconsumed, unexpired token as
// consumed and returns it. Anything else yields ErrNotFound, so redeeming a
// link is single-use by construction.
func (r *LoginTokenRepository) ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (persistence.LoginToken, error) {
	var consumed persistence.LoginToken

	err := r.db.withTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE login_tokens
			SET consumed_at = ?
			WHERE token = ? AND consumed_at IS NULL AND expires_at > ?`,
			formatTime(consumedAt), token, formatTime(consumedAt))
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		row := tx.QueryRowContext(ctx, `
			SELECT id, email, token, expires_at, created_at, consumed_at
			FROM login_tokens WHERE token = ?`, token)
		consumed, err = scanLoginToken(row)
		return err
	})
	if err != nil {
		return persistence.LoginToken{}, err
	}
	return consumed, nil
}

// DeleteExpiredLoginTokens removes tokens that are expired or already
// consumed as of the reference instant.
func (r *LoginTokenRepository) DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error {
	_, err := r.db.db.ExecContext(ctx, `
		DELETE FROM login_tokens WHERE expires_at <= ? OR consumed_at IS NOT NULL`,
		formatTime(reference))
	return mapError(err)
}

func scanLoginToken(scanner rowScanner) (persistence.LoginToken, error) {
	var (
		token                persistence.LoginToken
		expiresAt, createdAt string
		consumedAt           sql.NullString
	)
	if err := scanner.Scan(&token.ID, &token.Email, &token.Token,
		&expiresAt, &createdAt, &consumedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.LoginToken{}, persistence.ErrNotFound
		}
		return persistence.LoginToken{}, err
	}

	var err error
	if token.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.LoginToken{}, err
	}
	if token.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.LoginToken{}, err
	}
	if token.ConsumedAt, err = parseNullableTime(consumedAt); err != nil {
		return persistence.LoginToken{}, err
	}
	return token, nil
}
