package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const cacheFile = "cache.json"

// FileStore persists all keys in a single JSON object on disk. Every Set
// rewrites the file.
type FileStore struct {
	Entries map[string]json.RawMessage `json:"entries"`
	Path    string                     `json:"-"`
	mu      sync.RWMutex
}

// NewFileStore opens the store at path, or at ~/.config/sheetsync/cache.json
// when path is empty. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, cacheFile)
	}

	fs := &FileStore{
		Entries: make(map[string]json.RawMessage),
		Path:    path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := fs.Load(); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(fs); err != nil {
		return fmt.Errorf("failed to decode cache file %s: %w", fs.Path, err)
	}
	if fs.Entries == nil {
		fs.Entries = make(map[string]json.RawMessage)
	}
	return nil
}

func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	v, ok := fs.Entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores value, which must be valid JSON, and flushes the file.
func (fs *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("cache value for %q is not valid json", key)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev, had := fs.Entries[key]
	fs.Entries[key] = append(json.RawMessage(nil), value...)
	if err := fs.save(); err != nil {
		if had {
			fs.Entries[key] = prev
		} else {
			delete(fs.Entries, key)
		}
		return err
	}
	return nil
}

// save writes to a temp file and renames it over Path. Caller holds mu.
func (fs *FileStore) save() error {
	dir := filepath.Dir(fs.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fs); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.Path)
}

func (fs *FileStore) Close() error { return nil }
