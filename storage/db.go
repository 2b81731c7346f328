package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

// Open opens the database in dir and initializes the schema
func Open(dir string) (*DB, error) {
	return OpenFile(filepath.Join(dir, "maphider.db"))
}

// OpenFile opens the database at path and initializes the schema
func OpenFile(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database schema
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS toggles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,

		-- Which hotkey edge caused the flip
		edge TEXT NOT NULL,

		-- Target
		scene TEXT NOT NULL,
		item TEXT NOT NULL,

		-- Visibility after the flip
		visible BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_toggles_timestamp ON toggles(timestamp);
	CREATE INDEX IF NOT EXISTS idx_toggles_scene ON toggles(scene);
	`

	_, err := db.conn.Exec(schema)
	return err
}
