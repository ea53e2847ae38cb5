// Package queue persists gallery upload jobs in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and status transitions.
// Queue items capture counts, byte totals, progress, failure details, and the
// uploaded-files resume set the daemon feeds back into the engine, so an
// interrupted gallery continues instead of restarting.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or item fields, update schema.sql and bump schemaVersion.
package queue
