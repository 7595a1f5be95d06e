package idempotency

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type memoryEntry struct {
	response  Response
	expiresAt time.Time
}

// MemoryStore is the single instance fallback when no redis is configured.
// The least recently used responses are evicted once size is reached.
type MemoryStore struct {
	responses *lru.Cache
	mu        sync.Mutex
	locks     map[string]time.Time
	now       func() time.Time
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	responses, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		responses: responses,
		locks:     map[string]time.Time{},
		now:       time.Now,
	}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Response, error) {
	v, ok := s.responses.Get(key)
	if !ok {
		return nil, nil
	}
	entry := v.(memoryEntry)
	if !s.now().Before(entry.expiresAt) {
		s.responses.Remove(key)
		return nil, nil
	}
	response := entry.response
	return &response, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, response *Response, ttl time.Duration) error {
	s.responses.Add(key, memoryEntry{response: *response, expiresAt: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if expiresAt, ok := s.locks[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
