package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/room-booking/internal/persistence"
)

// AllowlistRepository implements persistence.AllowlistRepository on SQLite.
// Callers normalize emails before reaching this layer.
type AllowlistRepository struct {
	db *DB
}

// NewAllowlistRepository constructs an AllowlistRepository.
func NewAllowlistRepository(db *DB) *AllowlistRepository {
	return &AllowlistRepository{db: db}
}

// CreateEntry inserts a new allow-list entry.
func (r *AllowlistRepository) CreateEntry(ctx context.Context, entry persistence.AllowlistEntry) error {
	if entry.Email == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO allowlist_entries (email, notes, created_at)
		VALUES (?, ?, ?)`,
		entry.Email,
		nullableString(entry.Notes),
		formatTime(entry.CreatedAt),
	)
	return mapError(err)
}

// GetEntry retrieves an entry by normalized email.
func (r *AllowlistRepository) GetEntry(ctx context.Context, email string) (persistence.AllowlistEntry, error) {
	row := r.db.db.QueryRowContext(ctx, `
		SELECT email, notes, created_at FROM allowlist_entries WHERE email = ?`, email)
	return scanAllowlistEntry(row)
}

// ListEntries returns every entry ordered by email.
func (r *AllowlistRepository) ListEntries(ctx context.Context) ([]persistence.AllowlistEntry, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT email, notes, created_at FROM allowlist_entries ORDER BY email`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.AllowlistEntry, 0)
	for rows.Next() {
		entry, err := scanAllowlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry by normalized email.
func (r *AllowlistRepository) DeleteEntry(ctx context.Context, email string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM allowlist_entries WHERE email = ?`, email)
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
	return nil
}

func scanAllowlistEntry(scanner rowScanner) (persistence.AllowlistEntry, error) {
	var (
		entry     persistence.AllowlistEntry
		notes     sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&entry.Email, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AllowlistEntry{}, persistence.ErrNotFound
		}
		return persistence.AllowlistEntry{}, err
	}
	entry.Notes = stringPointer(notes)

	var err error
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AllowlistEntry{}, err
	}
	return entry, nil
}
