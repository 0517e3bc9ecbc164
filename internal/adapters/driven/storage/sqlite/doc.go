// Package sqlite records ingest attempts in an SQLite journal.
//
// The adapter uses modernc.org/sqlite, a pure Go SQLite implementation, so
// the binary stays free of CGO. The vector index lives in the snapshot
// store; this database only answers "what was ingested, when, and how did
// it go".
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files named NNN_description.
//
// # Data Location
//
// The database is journal.db inside the configured data directory, next to
// the index generations.
package sqlite
