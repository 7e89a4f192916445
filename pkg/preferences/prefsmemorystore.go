// FILE: pkg/preferences/prefsmemorystore.go

package preferences

import (
	"context"
	"sync"
)

// InMemoryStore is a thread-safe, in-memory implementation of the Store interface.
// Its contents live as long as the process.
type InMemoryStore struct {
	sync.RWMutex
	entries map[string]string
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]string),
	}
}

// Snapshot returns a copy of every entry.
func (s *InMemoryStore) Snapshot(ctx context.Context) (map[string]string, error) {
	s.RLock()
	defer s.RUnlock()

	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Apply commits an edit atomically.
func (s *InMemoryStore) Apply(ctx context.Context, edit *Edit) error {
	s.Lock()
	defer s.Unlock()
	s.entries = edit.ApplyTo(s.entries)
	return nil
}
