// Package sqlite provides the durable conversation store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Store implements driven.TurnStore over two tables:
//
//   - sessions: one row per conversation with created and updated times
//   - turns: every message in insertion order, with citations and the
//     assistant's intent and reasoning trace stored as JSON
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.ray/ray.db.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Multi-turn appends run in a
// single transaction, and SQLite runs in WAL mode with a busy timeout.
package sqlite
