package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ukydev/fleet-console/internal/models"
)

// ErrNoSession is returned by Load when no session record has been saved.
var ErrNoSession = errors.New("no stored session")

// SessionStore defines the interface for persisting the current session record.
type SessionStore interface {
	Load() (*models.SessionRecord, error)
	Save(record models.SessionRecord) error
	Clear() error
}

// FileSessionStore keeps the session record in a JSON file readable only by
// the owner.
type FileSessionStore struct {
	Path string
}

// NewFileSessionStore creates a store backed by path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{Path: path}
}

// Load reads the session record from disk.
func (s *FileSessionStore) Load() (*models.SessionRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var record models.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return &record, nil
}

// Save writes the session record, replacing any previous one.
func (s *FileSessionStore) Save(record models.SessionRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemorySessionStore keeps the session record in memory.
type MemorySessionStore struct {
	mu     sync.Mutex
	record *models.SessionRecord
}

// Load returns the stored record.
func (s *MemorySessionStore) Load() (*models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, ErrNoSession
	}
	r := *s.record
	return &r, nil
}

// Save stores a copy of record.
func (s *MemorySessionStore) Save(record models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &record
	return nil
}

// Clear drops the stored record.
func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}
