package memory

import (
	"bytes"
	"context"
	"sync"

	"todoctl/internal/domain/session"
)

// Storage - временное in-memory хранилище сессии.
// Используется, когда файл базы недоступен: сессия живет до конца процесса.
type Storage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Storage {
	return &Storage{
		data: make(map[string][]byte),
	}
}

func (m *Storage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, session.ErrNotFound
	}
	return bytes.Clone(value), nil
}

func (m *Storage) Put(ctx context.Context, entries map[string][]byte) error {
	return m.Replace(ctx, entries)
}

func (m *Storage) Delete(ctx context.Context, keys ...string) error {
	return m.Replace(ctx, nil, keys...)
}

func (m *Storage) Replace(ctx context.Context, entries map[string][]byte, drop ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range drop {
		delete(m.data, key)
	}
	for key, value := range entries {
		m.data[key] = bytes.Clone(value)
	}
	return nil
}

func (m *Storage) Close() error {
	return nil
}
