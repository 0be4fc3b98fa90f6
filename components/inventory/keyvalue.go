package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Persisted client state keys.
const (
	SessionKey = "session"
	ThemeKey   = "theme"
)

// KeyValueStore persists small client-side values such as the session and theme.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKeyValueStore is a concurrency-safe in-process store.
type MemoryKeyValueStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKeyValueStore creates an empty store.
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{data: make(map[string][]byte)}
}

func (s *MemoryKeyValueStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryKeyValueStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryKeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// FileKeyValueStore keeps every key in one JSON document on disk. Values must
// be valid JSON. Writes go through a temp file and rename.
type FileKeyValueStore struct {
	path string
	mu   sync.Mutex
}

// NewFileKeyValueStore stores state at path, creating parent directories on first write.
func NewFileKeyValueStore(path string) (*FileKeyValueStore, error) {
	if path == "" {
		return nil, errors.New("inventory: state file path is required")
	}
	return &FileKeyValueStore{path: path}, nil
}

// Path returns the backing file.
func (s *FileKeyValueStore) Path() string {
	return s.path
}

func (s *FileKeyValueStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, false, err
	}
	value, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (s *FileKeyValueStore) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("inventory: state value for %s is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = json.RawMessage(append([]byte(nil), value...))
	return s.save(doc)
}

func (s *FileKeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(doc)
}

func (s *FileKeyValueStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: read state file: %w", err)
	}
	doc := map[string]json.RawMessage{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("inventory: decode state file: %w", err)
	}
	return doc, nil
}

func (s *FileKeyValueStore) save(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("inventory: encode state file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("inventory: create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".inventory-state-*")
	if err != nil {
		return fmt.Errorf("inventory: create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("inventory: write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("inventory: close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("inventory: replace state file: %w", err)
	}
	return nil
}
