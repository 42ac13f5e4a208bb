package db

import (
	"fmt"
	"sort"
	"sync"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
)

// MemoryStore keeps scans in process memory. It is the default: the demo has
// no durable state.
type MemoryStore struct {
	mu    sync.RWMutex
	scans map[string]model.Scan
	seq   map[string]int
	next  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans: make(map[string]model.Scan),
		seq:   make(map[string]int),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Save inserts or replaces a scan.
func (s *MemoryStore) Save(scan model.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("scan id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seq[scan.ID]; !ok {
		s.next++
		s.seq[scan.ID] = s.next
	}
	s.scans[scan.ID] = scan.Clone()
	return nil
}

// Get returns a copy of the scan.
func (s *MemoryStore) Get(id string) (model.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, ok := s.scans[id]
	if !ok {
		return model.Scan{}, fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	return scan.Clone(), nil
}

// List returns copies of all scans, newest first.
func (s *MemoryStore) List() ([]model.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Scan, 0, len(s.scans))
	for _, scan := range s.scans {
		out = append(out, scan.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

// Update mutates a scan under the store lock.
func (s *MemoryStore) Update(id string, fn func(*model.Scan) error) (model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[id]
	if !ok {
		return model.Scan{}, fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	working := scan.Clone()
	if err := fn(&working); err != nil {
		return model.Scan{}, err
	}
	s.scans[id] = working.Clone()
	return working, nil
}

// Delete removes a scan.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[id]; !ok {
		return fmt.Errorf("scan %s: %w", id, apperrors.ErrNotFound)
	}
	delete(s.scans, id)
	delete(s.seq, id)
	return nil
}
