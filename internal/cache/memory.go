package cache

import (
	"context"
	"sync"

	"github.com/Zereker/filesearch/internal/domain"
)

// Memory is the in-process cache backend. Reads and writes are serialized by
// an RWMutex so concurrent resolvers never observe torn entries.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.StoreDescriptor
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]domain.StoreDescriptor),
	}
}

// Get returns the cached descriptor for a display name
func (m *Memory) Get(_ context.Context, displayName string) (*domain.StoreDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[displayName]
	if !ok {
		return nil, false
	}

	// Copy out so callers cannot mutate the cached entry
	descriptor := entry
	return &descriptor, true
}

// Set stores a descriptor under its display name
func (m *Memory) Set(_ context.Context, displayName string, store *domain.StoreDescriptor) {
	if store == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[displayName] = *store
}

// Delete removes one entry
func (m *Memory) Delete(_ context.Context, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, displayName)
}

// Clear removes all entries
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]domain.StoreDescriptor)
}

// Len returns the number of cached entries (used by tests)
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
