package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// connPragmas are run by the driver on every pooled connection, so foreign
// keys and the busy timeout hold for all of them, not just the first.
const connPragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DB is the run store: trend runs and their ranked entries in SQLite.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the run store at dbPath, creating the file and its directory
// when needed, and migrates it to the current schema.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?"+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening run store %s: %w", dbPath, err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating run store: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("run store ready")
	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
