// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests and local iteration.
// Not durable.
type MemoryStore struct {
	mu     sync.RWMutex
	value  string
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	return m.value, nil
}

func (m *MemoryStore) Set(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if value == "" {
		return nil
	}
	m.value = value
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
