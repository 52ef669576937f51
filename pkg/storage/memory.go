package storage

import (
	"context"
	"sync"
)

type memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns a Store that forgets everything on exit.
func NewMemory() Store {
	return &memory{values: make(map[string]string)}
}

func (m *memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memory) Close() error { return nil }
