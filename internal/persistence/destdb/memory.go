package destdb

import (
	"sync"

	"waygate.ai/internal/sim/destinations"
)

// MemoryStore is the in-memory Store used by tests and by servers started
// with persistence disabled.
type MemoryStore struct {
	mu        sync.Mutex
	overrides map[string]destinations.Override
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{overrides: map[string]destinations.Override{}}
}

func (m *MemoryStore) LoadOverrides() (map[string]destinations.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]destinations.Override, len(m.overrides))
	for k, v := range m.overrides {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) SaveOverride(name string, o destinations.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[name] = o
	return nil
}
