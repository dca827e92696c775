package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Storage.Load when nothing has been saved yet.
var ErrNotFound = errors.New("preferences not found")

// Storage persists the encoded preferences blob.
type Storage interface {
	// Load returns the stored blob or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored blob.
	Save(ctx context.Context, data []byte) error
}

// DefaultFilePath returns <user config dir>/adsb-terminal/preferences.json.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "adsb-terminal", "preferences.json"), nil
}

// FileStorage keeps the blob in a JSON file. Writes go to a temporary file
// that is renamed over the target.
type FileStorage struct {
	path string
}

// NewFileStorage creates a FileStorage at path. An empty path uses
// DefaultFilePath.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileStorage{path: path}, nil
}

// Path returns the file location.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads the file.
func (f *FileStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}
	return data, nil
}

// Save writes the file atomically.
func (f *FileStorage) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set preferences permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

// MemoryStorage keeps the blob in memory. Used by the feed probe and tests.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
	err  error
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns a copy of the stored blob.
func (m *MemoryStorage) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of data, or returns the error set by FailSaves.
func (m *MemoryStorage) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = append([]byte(nil), data...)
	return nil
}

// FailSaves makes subsequent saves return err; nil restores normal saves.
func (m *MemoryStorage) FailSaves(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
