package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory — in-memory реализация MetadataStore и AuditSink.
// Используется в тестах и локальной разработке.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get возвращает документ по ключу.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Put записывает документ по ключу.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

// List возвращает отсортированные ключи с данным префиксом.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete удаляет документ. Отсутствующий ключ — не ошибка.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Append добавляет audit-запись. Повторная запись по тому же
// ключу — ErrAlreadyExists (write-once).
func (m *Memory) Append(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		return ErrAlreadyExists
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

// Len возвращает количество записей.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
