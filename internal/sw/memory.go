package sw

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	apierrors "github.com/Memphis465/nova/internal/errors"
)

const defaultMemoryEntries = 512

// MemoryStorage keeps caches in memory; each cache is an LRU bounded to
// maxEntries so a long session cannot grow without limit.
type MemoryStorage struct {
	mu         sync.RWMutex
	maxEntries int
	order      []string
	caches     map[string]*memoryCache
}

// NewMemoryStorage creates an empty in-memory cache storage
func NewMemoryStorage(maxEntries int) *MemoryStorage {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}
	return &MemoryStorage{
		maxEntries: maxEntries,
		caches:     make(map[string]*memoryCache),
	}
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	entries, err := lru.New[string, *CachedResponse](s.maxEntries)
	if err != nil {
		return nil, apierrors.NewCacheError("open", name, err)
	}
	c := &memoryCache{name: name, entries: entries}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

func (s *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caches[name]
	return ok, nil
}

func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStorage) Match(ctx context.Context, url string) (*CachedResponse, error) {
	s.mu.RLock()
	caches := make([]*memoryCache, 0, len(s.order))
	for _, name := range s.order {
		caches = append(caches, s.caches[name])
	}
	s.mu.RUnlock()

	for _, c := range caches {
		entry, err := c.Match(ctx, url)
		if err == nil {
			return entry, nil
		}
	}
	return nil, apierrors.ErrCacheMiss
}

func (s *MemoryStorage) Close() error {
	return nil
}

// memoryCache relies on the LRU's own locking for atomic put and match
type memoryCache struct {
	name    string
	entries *lru.Cache[string, *CachedResponse]
}

func (c *memoryCache) Put(_ context.Context, entry *CachedResponse) error {
	stored := *entry
	stored.Body = append([]byte(nil), entry.Body...)
	c.entries.Add(entry.URL, &stored)
	return nil
}

func (c *memoryCache) Match(_ context.Context, url string) (*CachedResponse, error) {
	entry, ok := c.entries.Get(url)
	if !ok {
		return nil, apierrors.ErrCacheMiss
	}
	return entry, nil
}

func (c *memoryCache) Delete(_ context.Context, url string) (bool, error) {
	return c.entries.Remove(url), nil
}

func (c *memoryCache) Keys(_ context.Context) ([]string, error) {
	return c.entries.Keys(), nil
}
