// Package store provides the two string key-value namespaces the charge
// point relies on: a session store whose contents live only as long as one
// WebSocket session, and a durable store that survives restarts.
package store

import (
	"sync"
)

// Store is a string key-value namespace. Get returns def when the key is
// absent; values are strings and callers parse.
type Store interface {
	Get(key, def string) string
	Put(key, value string) error
}

// DurableStore is a Store with a lifecycle: it persists across restarts and
// must be closed when the process shuts down.
type DurableStore interface {
	Store
	Close() error
}

// MemoryStore is the session namespace: a mutex-guarded map cleared on
// reconnect. The engine is the only writer.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Put implements Store.
func (s *MemoryStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Clear drops every key. Called when a session ends.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}
