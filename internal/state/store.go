package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/danieljhkim/trialgate/internal/fsops"
)

// Store is a namespaced persistent key-value store.
type Store interface {
	// Read returns the value for key. ok is false when the key is absent.
	Read(key string) (value string, ok bool, err error)

	// Write stores value under key, replacing any previous value.
	Write(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Read returns the value for key.
func (s *MemoryStore) Read(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Write stores value under key.
func (s *MemoryStore) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStore implements Store with one file per key.
type FileStore struct {
	fs  fsops.FS
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(fs fsops.FS, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) path(key string) (string, error) {
	if err := s.fs.ValidateIdentifier(key); err != nil {
		return "", fmt.Errorf("invalid state key %q: %w", key, err)
	}
	return filepath.Join(s.dir, key), nil
}

// Read returns the contents of the key's file.
func (s *FileStore) Read(key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state: %w", err)
	}

	return string(data), true, nil
}

// Write replaces the key's file atomically.
func (s *FileStore) Write(key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := s.fs.AtomicWrite(path, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	return nil
}

// Delete removes the key's file.
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return nil
}
