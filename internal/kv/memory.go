package kv

import (
	"sync"
)

// MemoryBackend keeps values in a map. FailWith makes every call return the
// given error, which lets tests exercise the degraded paths.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	fail   error
}

// NewMemoryBackend returns an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// FailWith makes subsequent operations fail with err (nil restores normal behaviour)
func (m *MemoryBackend) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", false, m.fail
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.values, key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemoryBackend) Close() error { return nil }
