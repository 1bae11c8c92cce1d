// Package sqlite implements the snippet repository on SQLite.
//
// WHY SQLITE?
// SQLite is an embedded database; it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage. For a
// single-store snippet service that is exactly the right amount of
// infrastructure, and ":memory:" gives tests a throwaway database for free.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources; works everywhere Go works.
//
// The slug UNIQUE constraint in the schema below is load-bearing: it is the
// single serialization point for slug assignment. The probe loop in the slug
// package narrows collisions, but when two creators race on the same base
// slug, this constraint is what actually decides the winner. The loser's
// violation is translated to apperror.ErrConflict, never retried here.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	// Registers the "sqlite" driver with database/sql; also provides the
	// typed error used by isUniqueViolation.
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path or permissions problem
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress:
	// necessary for a web server where previews and edits overlap.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id             TEXT PRIMARY KEY,
			slug           TEXT NOT NULL UNIQUE,
			title          TEXT NOT NULL,
			html           TEXT NOT NULL,
			css            TEXT,
			js             TEXT,
			views          INTEGER NOT NULL DEFAULT 0,
			last_viewed_at DATETIME,
			is_disabled    INTEGER NOT NULL DEFAULT 0,
			expires_at     DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a write because
// of the slug UNIQUE constraint. modernc.org/sqlite surfaces extended result
// codes on its error type, so this is a typed check rather than string
// matching.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
