// Package dbmigrator applies and reverts versioned SQL migration scripts
// against SQL Server, Postgres, MySQL and SQLite using database/sql.
//
// A script is a file holding an optional "-- Up" line, then the SQL which
// applies a change, then a "-- Down" line, then the SQL which reverts it.
// Scripts are ordered by file name, so names should start with a sortable
// timestamp or sequence number.
//
// Which scripts have been applied is kept in a bookkeeping table whose name
// and layout come from the Dialect. Every script runs in its own transaction
// together with the insert or delete of its bookkeeping row.
//
// Basic usage instructions involve creating a dbmigrator.Migrator via the
// dbmigrator.NewMigrator() function, and then passing a *sql.Conn and a
// directory to its .Up() or .Down() method.
package dbmigrator
