package apiclient

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// TokenStore keeps the bearer token between calls. It plays the role a
// browser's local storage plays for the web front end.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// FileTokenStore keeps the token in a single file.
type FileTokenStore struct {
	fs   afero.Fs
	path string
}

// NewFileTokenStore stores the token at path on fs.
func NewFileTokenStore(fs afero.Fs, path string) *FileTokenStore {
	return &FileTokenStore{fs: fs, path: path}
}

// Token returns the stored token, or "" when there is none.
func (s *FileTokenStore) Token() (string, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SetToken writes the token with owner-only permissions.
func (s *FileTokenStore) SetToken(token string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// ClearToken removes the token file. A missing file is not an error.
func (s *FileTokenStore) ClearToken() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) ClearToken() error {
	return s.SetToken("")
}
