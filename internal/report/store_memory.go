package report

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps archived reports in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, summary)
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Summary(nil), s.reports...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) PruneOldest(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(s.reports) <= keep {
		return 0, nil
	}
	sort.Slice(s.reports, func(i, j int) bool {
		return s.reports[i].GeneratedAt.Before(s.reports[j].GeneratedAt)
	})
	removed := len(s.reports) - keep
	s.reports = append([]Summary(nil), s.reports[removed:]...)
	return removed, nil
}
