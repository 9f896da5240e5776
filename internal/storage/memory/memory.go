// Package memory provides an in-memory storage.KV for tests and throwaway
// sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/clubhouse/internal/storage"
)

var _ storage.KV = (*KVStore)(nil)

// KVStore keeps values in a map guarded by a RWMutex.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
	failAt map[string]bool
}

// New creates an empty store.
func New() *KVStore {
	return &KVStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, fmt.Errorf("store closed")
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *KVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store closed")
	}
	if s.failAt[key] {
		return fmt.Errorf("set %s: write refused", key)
	}
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys lists all keys in ascending order.
func (s *KVStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed. Later calls fail.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailSetsOn makes later Set calls for the given keys fail. It exists to
// exercise partial-write behaviour.
func (s *KVStore) FailSetsOn(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt == nil {
		s.failAt = make(map[string]bool)
	}
	for _, k := range keys {
		s.failAt[k] = true
	}
}

// Dump returns a copy of every key and value.
func (s *KVStore) Dump() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
