package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFileName indicates a migration file does not follow the
	// {version}_{description}.sql convention.
	ErrInvalidFileName = errors.New("migration: invalid file name")
	// ErrVersionGap indicates the embedded migrations are not a contiguous
	// sequence starting from the first applied version.
	ErrVersionGap = errors.New("migration: version sequence has a gap")
	// ErrUnknownApplied indicates the database records a version that no
	// embedded migration provides.
	ErrUnknownApplied = errors.New("migration: applied version missing from embedded set")
)

// Error wraps a failure while applying one migration version.
type Error struct {
	Version string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Version, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
