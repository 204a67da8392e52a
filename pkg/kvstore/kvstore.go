// Package kvstore is the string key/value storage port used for history,
// credentials and the onboarding flag.
package kvstore

import (
	"fmt"
	"sync"
)

// Well-known keys.
const (
	KeyHistory     = "promptHistory"
	KeyCredentials = "gemini_api_keys"
	KeyOnboarding  = "hasSeenOnboarding"
)

// Store gets, sets and removes string values by key. A missing key is
// reported by ok=false, not by an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Open returns the store for driver ("memory", "sqlite", "file").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(path)
	case "file":
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// Close closes s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
