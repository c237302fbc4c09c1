package access

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process entitlement store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[int64]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[int64]Record)}
}

func (s *InMemoryStore) Get(_ context.Context, userID int64) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[userID]
	if !ok {
		return Record{UserID: userID}
	}
	return r
}

func (s *InMemoryStore) mutate(userID int64, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		r = Record{UserID: userID}
	}
	fn(&r)
	r.UpdatedAt = time.Now().UTC()
	s.records[userID] = r
}

func (s *InMemoryStore) SetFree(_ context.Context, userID int64, enabled bool) error {
	s.mutate(userID, func(r *Record) {
		r.IsFree = enabled
		r.FreeUntil = 0
	})
	return nil
}

func (s *InMemoryStore) SetPaid(_ context.Context, userID int64, enabled bool) error {
	s.mutate(userID, func(r *Record) {
		r.IsPaid = enabled
	})
	return nil
}

func (s *InMemoryStore) SetBlocked(_ context.Context, userID int64, enabled bool) error {
	s.mutate(userID, func(r *Record) {
		r.IsBlocked = enabled
		r.BlockedUntil = 0
	})
	return nil
}

func (s *InMemoryStore) SetFreeUntil(_ context.Context, userID int64, until int64) error {
	s.mutate(userID, func(r *Record) {
		r.IsFree = true
		r.FreeUntil = until
	})
	return nil
}

func (s *InMemoryStore) SetBlockedUntil(_ context.Context, userID int64, until int64) error {
	s.mutate(userID, func(r *Record) {
		r.IsBlocked = true
		r.BlockedUntil = until
	})
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
