package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore remembers the most recent keys in a bounded LRU-style window.
// It backs single-node deployments and tests; distributed deployments use the
// Redis store so overlapping schedulers share one dedupe view.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	clock    func() time.Time
}

type entry struct {
	key       string
	expiresAt time.Time
}

// NewMemory creates a bounded in-memory dedupe store. capacity caps the
// number of remembered keys; the oldest key is evicted first.
func NewMemory(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		clock:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

// Seen records key with ttl and reports whether it was already present and
// unexpired. The check and the record are one atomic step.
func (s *MemoryStore) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		if now.Before(e.expiresAt) {
			return true, nil
		}
		s.order.Remove(el)
		delete(s.entries, key)
	}

	for s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*entry).key)
	}

	s.entries[key] = s.order.PushFront(&entry{key: key, expiresAt: now.Add(ttl)})
	return false, nil
}

// Len reports the number of remembered keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
