package migration

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migration set compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		// The subdirectory is part of the embed directive; failure here is a
		// build defect, not a runtime condition.
		panic(err)
	}
	return sub
}
