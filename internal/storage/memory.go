package storage

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps records in process memory. Used for development and tests.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return rec.Clone(), nil
	}
	return NewRecord(userID, s.now()), nil
}

func (s *InMemoryStore) Merge(_ context.Context, userID string, patch Patch) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[userID]
	if !ok {
		rec = NewRecord(userID, now)
	}
	rec.Apply(patch, now)
	s.records[userID] = rec
	return rec.Clone(), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
