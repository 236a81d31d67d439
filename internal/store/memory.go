package store

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in memory (development/testing use).
// With a positive capacity the oldest entries are dropped first.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []Entry
	nextID   int64
	capacity int
	closed   bool
}

// NewMemoryStore creates a store; capacity <= 0 means unbounded
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

// Record appends an entry and assigns its ID
func (s *MemoryStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.nextID++
	e.ID = s.nextID
	s.entries = append(s.entries, e)

	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	limit = clampLimit(limit)
	out := make([]Entry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Count returns the number of stored entries
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close marks the store closed
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
