package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies embedded migrations against a SQLite database.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewManager constructs a Manager. A nil logger falls back to slog.Default.
func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}
}

// Run applies every pending migration from the filesystem in version order.
// Each migration executes in its own transaction; a failure stops the run
// and leaves earlier migrations committed.
func (m *Manager) Run(ctx context.Context, fsys fs.FS) error {
	migrations, err := Scan(fsys)
	if err != nil {
		return err
	}

	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return err
	}

	available := make(map[string]struct{}, len(migrations))
	for _, migration := range migrations {
		available[migration.Version] = struct{}{}
	}
	appliedSet := make(map[string]struct{}, len(applied))
	for _, version := range applied {
		if _, ok := available[version]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownApplied, version)
		}
		appliedSet[version] = struct{}{}
	}

	for _, migration := range migrations {
		if _, ok := appliedSet[migration.Version]; ok {
			continue
		}
		started := time.Now()
		if err := m.apply(ctx, migration); err != nil {
			return &Error{Version: migration.Version, Err: err}
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"duration", time.Since(started),
		)
	}

	return nil
}

// AppliedVersions returns the recorded migration versions in apply order.
func (m *Manager) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	versions := make([]string, 0)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (m *Manager) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to initialise schema_migrations: %w", err)
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, statement := range SplitStatements(migration.SQL) {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("statement failed (rollback error: %v): %w", rbErr, err)
			}
			return err
		}
	}

	appliedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		migration.Version, appliedAt,
	); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("version record failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
