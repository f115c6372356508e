package index

import (
	"context"
	"sync"
)

// MemIndex is an in-memory Index for tests/dev. The mutex makes Reserve
// atomic for concurrent reservation attempts on the same key.
type MemIndex struct {
	mu   sync.Mutex
	data map[string]map[string]int64
}

func NewMemIndex() *MemIndex {
	return &MemIndex{data: map[string]map[string]int64{}}
}

func (m *MemIndex) Reserve(_ context.Context, index, key string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.data[index]
	if !ok {
		entries = map[string]int64{}
		m.data[index] = entries
	}
	if _, taken := entries[key]; taken {
		return ErrAlreadyExists
	}
	entries[key] = id
	return nil
}

func (m *MemIndex) Lookup(_ context.Context, index, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.data[index][key]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (m *MemIndex) Remove(_ context.Context, index, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data[index], key)
	return nil
}

var _ Index = (*MemIndex)(nil)
