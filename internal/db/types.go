package db

import (
	"scandemo/internal/model"
)

// Store persists scan display records. Implementations hand out copies, so a
// caller holding a returned Scan never observes later writes.
type Store interface {
	Close() error
	Save(scan model.Scan) error
	Get(id string) (model.Scan, error)
	// List returns every scan, newest first.
	List() ([]model.Scan, error)
	// Update applies fn to the stored scan and writes the result back. If fn
	// returns an error nothing is written.
	Update(id string, fn func(*model.Scan) error) (model.Scan, error)
	Delete(id string) error
}
