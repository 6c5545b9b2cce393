// Package migration applies versioned schema migrations to the SQLite
// database.
//
// Migration files are embedded in the binary and follow the naming
// convention {version}_{description}.sql (e.g. "001_initial_schema.sql").
// Each migration executes inside its own transaction, and applied versions
// are recorded in a schema_migrations table so a migration never runs twice.
// A gap or an unknown applied version aborts the run before touching the
// database.
package migration
