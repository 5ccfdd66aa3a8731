package repository

import (
	"context"
	"sync"

	cerrors "quickbasket/pkg/errors"
)

// MemoryStore implements Store in process memory. It doubles as the
// test double for the durable stores: it can be switched unavailable and
// counts writes per key.
type MemoryStore struct {
	mu          sync.Mutex
	values      map[string]string
	writes      map[string]int
	unavailable bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		writes: make(map[string]int),
	}
}

// Get returns the value under key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return "", false, cerrors.ErrStorageUnavailable
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return cerrors.ErrStorageUnavailable
	}
	s.values[key] = value
	s.writes[key]++
	return nil
}

// Delete removes key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return cerrors.ErrStorageUnavailable
	}
	delete(s.values, key)
	return nil
}

// Ping reports whether the store is switched on
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return cerrors.ErrStorageUnavailable
	}
	return nil
}

// SetAvailable switches the store on or off
func (s *MemoryStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !available
}

// Writes returns how many times key has been written
func (s *MemoryStore) Writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

// Has reports whether key currently holds a value
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}
