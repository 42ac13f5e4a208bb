package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlStore
}

var sqliteDialect = dialect{
	upsert: `INSERT INTO scans (id, status, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, content = excluded.content, updated_at = excluded.updated_at`,
	selectOne: `SELECT content FROM scans WHERE id = ?`,
	selectAll: `SELECT content FROM scans ORDER BY created_at DESC, rowid DESC`,
	update:    `UPDATE scans SET status = ?, content = ?, updated_at = ? WHERE id = ?`,
	remove:    `DELETE FROM scans WHERE id = ?`,
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{sqlStore{db: db, q: sqliteDialect}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}
