package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process turn store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	turns     map[int64][]Turn
	nextSeq   int64
	retention int
}

func NewInMemoryStore(retention int) *InMemoryStore {
	if retention <= 0 {
		retention = 48
	}
	return &InMemoryStore{turns: make(map[int64][]Turn), retention: retention}
}

func (s *InMemoryStore) Append(_ context.Context, userID int64, role, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	arr := append(s.turns[userID], Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Text:      text,
		Seq:       s.nextSeq,
		CreatedAt: time.Now().UTC(),
	})
	if excess := len(arr) - s.retention; excess > 0 {
		arr = arr[excess:]
	}
	s.turns[userID] = arr
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, userID int64, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, userID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
