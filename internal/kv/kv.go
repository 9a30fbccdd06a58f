// Package kv is the key/value status store used for migration locks and
// completion markers. It mirrors browser local-storage semantics: values are
// strings, JSON helpers sit on top, and every failure degrades to an empty
// result instead of an error.
package kv

import (
	"encoding/json"
	"sort"

	"github.com/franz/tilekeeper/internal/util"
)

// Backend is the raw persistence behind a Store
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// Store wraps a Backend with logging, never-failing accessors
type Store struct {
	backend Backend
}

// New creates a Store over the given backend
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewMemory creates a Store backed by process memory
func NewMemory() *Store {
	return New(NewMemoryBackend())
}

// Close releases the backend
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// GetItem returns the value stored under key. ok is false when the key is
// absent or the backend failed.
func (s *Store) GetItem(key string) (string, bool) {
	if s == nil || s.backend == nil {
		return "", false
	}
	v, ok, err := s.backend.Get(key)
	if err != nil {
		util.WarnLog("kv: failed to read %q: %v", key, err)
		return "", false
	}
	return v, ok
}

// SetItem stores value under key and reports success
func (s *Store) SetItem(key, value string) bool {
	if s == nil || s.backend == nil {
		return false
	}
	if err := s.backend.Put(key, value); err != nil {
		util.WarnLog("kv: failed to write %q: %v", key, err)
		return false
	}
	return true
}

// RemoveItem deletes key and reports success. Removing an absent key succeeds.
func (s *Store) RemoveItem(key string) bool {
	if s == nil || s.backend == nil {
		return false
	}
	if err := s.backend.Delete(key); err != nil {
		util.WarnLog("kv: failed to remove %q: %v", key, err)
		return false
	}
	return true
}

// GetJSON decodes the value under key into a new T. Returns nil when the key
// is absent, unreadable, or holds malformed JSON.
func GetJSON[T any](s *Store, key string) *T {
	raw, ok := s.GetItem(key)
	if !ok {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		util.WarnLog("kv: malformed JSON under %q: %v", key, err)
		return nil
	}
	return &v
}

// SetJSON encodes value as JSON under key and reports success
func (s *Store) SetJSON(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		util.WarnLog("kv: failed to encode %q: %v", key, err)
		return false
	}
	return s.SetItem(key, string(data))
}

// Keys lists all stored keys in sorted order. Returns nil on failure.
func (s *Store) Keys() []string {
	if s == nil || s.backend == nil {
		return nil
	}
	keys, err := s.backend.Keys()
	if err != nil {
		util.WarnLog("kv: failed to list keys: %v", err)
		return nil
	}
	sort.Strings(keys)
	return keys
}
