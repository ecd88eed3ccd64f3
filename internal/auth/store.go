package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the session in a small JSON file, the CLI's counterpart of
// browser-local storage.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Load returns the stored session. A missing file is an empty session.
func (f *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("reading session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing session file: %w", err)
	}
	return s, nil
}

// Save writes the session, creating the parent directory if needed.
func (f *FileStore) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// MemoryStore keeps the session in memory. Used by tests.
type MemoryStore struct {
	Session Session
}

// Load returns the held session.
func (m *MemoryStore) Load() (Session, error) { return m.Session, nil }

// Save replaces the held session.
func (m *MemoryStore) Save(s Session) error { m.Session = s; return nil }

// Clear empties the held session.
func (m *MemoryStore) Clear() error { m.Session = Session{}; return nil }
