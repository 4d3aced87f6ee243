// Package cache keeps timer records on the local device so reads and
// writes keep working while the remote sheet is unreachable.
package cache

import (
	"os"
	"path/filepath"
	"sync"
)

// Store is a durable key/value store. Each call is one atomic operation.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}

// DefaultDir is ~/.config/sheetsync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sheetsync"), nil
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
