package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. A positive quota bounds the summed
// size of all values; writes past it fail with ErrQuotaExceeded.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithQuota bounds the total stored bytes.
func WithQuota(bytes int) MemoryOption {
	return func(m *MemoryStore) {
		m.quota = bytes
	}
}

// NewMemory creates an empty MemoryStore.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{data: make(map[string][]byte)}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *MemoryStore) Migrate(_ context.Context) error { return nil }
func (m *MemoryStore) Close() error                    { return nil }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		total := len(value)
		for k, v := range m.data {
			if k != key {
				total += len(v)
			}
		}
		if total > m.quota {
			return ErrQuotaExceeded
		}
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
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
