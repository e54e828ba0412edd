package inmem

import (
	"context"
	"sync"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

// MemoryStore holds the collection in process memory. Slices are copied on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	memories []store.Memory
}

func New(seed ...store.Memory) *MemoryStore {
	return &MemoryStore{memories: clone(seed)}
}

func (m *MemoryStore) Load(ctx context.Context) ([]store.Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.memories), nil
}

func (m *MemoryStore) Save(ctx context.Context, memories []store.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories = clone(memories)
	return nil
}

func clone(memories []store.Memory) []store.Memory {
	out := make([]store.Memory, len(memories))
	copy(out, memories)
	return out
}
