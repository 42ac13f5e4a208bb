package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	upsert    string
	selectOne string
	selectAll string
	update    string
	remove    string
}

// sqlStore implements Store on top of database/sql for any dialect.
type sqlStore struct {
	db *sql.DB
	q  dialect
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a scan.
func (s *sqlStore) Save(scan model.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("scan id is required")
	}
	content, err := encodeScan(scan)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.q.upsert, scan.ID, string(scan.Status), content, scan.CreatedAt.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// Get loads one scan.
func (s *sqlStore) Get(id string) (model.Scan, error) {
	var content string
	err := s.db.QueryRow(s.q.selectOne, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scan{}, fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return model.Scan{}, fmt.Errorf("failed to load scan: %w", err)
	}
	return decodeScan(content)
}

// List returns every scan, newest first.
func (s *sqlStore) List() ([]model.Scan, error) {
	rows, err := s.db.Query(s.q.selectAll)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var results []model.Scan
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		scan, err := decodeScan(content)
		if err != nil {
			return nil, err
		}
		results = append(results, scan)
	}
	return results, rows.Err()
}

// Update runs fn inside a transaction.
func (s *sqlStore) Update(id string, fn func(*model.Scan) error) (model.Scan, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Scan{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var content string
	err = tx.QueryRow(s.q.selectOne, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scan{}, fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return model.Scan{}, fmt.Errorf("failed to load scan: %w", err)
	}

	scan, err := decodeScan(content)
	if err != nil {
		return model.Scan{}, err
	}
	if err := fn(&scan); err != nil {
		return model.Scan{}, err
	}

	updated, err := encodeScan(scan)
	if err != nil {
		return model.Scan{}, err
	}
	if _, err := tx.Exec(s.q.update, string(scan.Status), updated, time.Now().UnixNano(), id); err != nil {
		return model.Scan{}, fmt.Errorf("failed to update scan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Scan{}, fmt.Errorf("failed to commit scan update: %w", err)
	}
	return scan, nil
}

// Delete removes a scan.
func (s *sqlStore) Delete(id string) error {
	res, err := s.db.Exec(s.q.remove, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
