package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements Store with an in-process TTL cache.
type MemoryStore struct {
	cache *ttlcache.Cache[string, string]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore starts the cache's expiry loop; call Close to stop it.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Save(_ context.Context, id, userID string, ttl time.Duration) error {
	s.cache.Set(id, userID, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (string, error) {
	item := s.cache.Get(id)
	if item == nil || item.IsExpired() {
		return "", ErrNotFound
	}
	return item.Value(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
