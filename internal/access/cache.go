package access

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/antoniostano/instagroq/internal/observability"
)

// CachedStore fronts a durable Store with an expirable LRU. The cache is a
// read accelerator only: every write goes straight to the inner store and
// invalidates the cached record, and entries lapse after the TTL so records
// mutated by another instance are picked up.
type CachedStore struct {
	inner   Store
	cache   *expirable.LRU[int64, Record]
	metrics *observability.Metrics
}

func NewCachedStore(inner Store, size int, ttl time.Duration, metrics *observability.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		cache:   expirable.NewLRU[int64, Record](size, nil, ttl),
		metrics: metrics,
	}
}

func (s *CachedStore) Get(ctx context.Context, userID int64) Record {
	if r, ok := s.cache.Get(userID); ok {
		if s.metrics != nil {
			s.metrics.AccessCacheHits.Inc()
		}
		return r
	}
	if s.metrics != nil {
		s.metrics.AccessCacheMiss.Inc()
	}
	r := s.inner.Get(ctx, userID)
	s.cache.Add(userID, r)
	return r
}

func (s *CachedStore) SetFree(ctx context.Context, userID int64, enabled bool) error {
	err := s.inner.SetFree(ctx, userID, enabled)
	s.cache.Remove(userID)
	return err
}

func (s *CachedStore) SetPaid(ctx context.Context, userID int64, enabled bool) error {
	err := s.inner.SetPaid(ctx, userID, enabled)
	s.cache.Remove(userID)
	return err
}

func (s *CachedStore) SetBlocked(ctx context.Context, userID int64, enabled bool) error {
	err := s.inner.SetBlocked(ctx, userID, enabled)
	s.cache.Remove(userID)
	return err
}

func (s *CachedStore) SetFreeUntil(ctx context.Context, userID int64, until int64) error {
	err := s.inner.SetFreeUntil(ctx, userID, until)
	s.cache.Remove(userID)
	return err
}

func (s *CachedStore) SetBlockedUntil(ctx context.Context, userID int64, until int64) error {
	err := s.inner.SetBlockedUntil(ctx, userID, until)
	s.cache.Remove(userID)
	return err
}

func (s *CachedStore) Close() error {
	return s.inner.Close()
}
