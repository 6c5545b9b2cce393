package migration

import "time"

// Migration is a single versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FileName    string
}

// AppliedMigration records when a migration version was executed.
type AppliedMigration struct {
	Version   string
	AppliedAt time.Time
}
