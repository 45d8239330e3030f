// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// LOOSE TYPING:
// SQLite columns have a declared "affinity", not a strict type. A value that does
// not fit the affinity is stored as-is: writing "abc" into the INTEGER release_year
// column stores the TEXT "abc". The movie log relies on this: unparsable release
// years and ratings are kept exactly as submitted, and the read path decides what
// to make of them (see internal/coerce).
//
// SCHEMA LIFECYCLE:
// There are no migrations. The movies table is created by Reset, which drops and
// rebuilds it from seed data. New() only opens the connection; the server checks
// TableExists at startup and resets when the table is missing.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// Memory is the DSN for a throwaway in-memory database (tests).
const Memory = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath.
//
// dbPath examples:
//   - "data/movielog.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (great for tests, lost on close)
//
// PRAGMAS IN THE DSN:
// sql.DB is a pool, and a PRAGMA run with Exec only configures whichever
// connection happened to run it. Passing them as _pragma DSN parameters makes
// the driver apply them to every connection it opens.
//
// _txlock=immediate makes BeginTx take the write lock up front. Update reads
// before it writes; a deferred transaction would have to upgrade its read
// lock, and an upgrade that loses to another writer fails with SQLITE_BUSY
// at once instead of waiting out busy_timeout.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != Memory {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	// Pinning the pool to one connection keeps all queries on the same data.
	if dbPath == Memory {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// TableExists reports whether the movies table has been created.
//
// Asking sqlite_master is the startup health check. It separates "fresh
// database, needs seeding" from every other failure, which should stop the
// server instead of triggering a destructive reset.
func (db *DB) TableExists(ctx context.Context) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'movies'`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking for movies table: %w", err)
	}
	return count > 0, nil
}
