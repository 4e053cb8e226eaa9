package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome of one delivery attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "skipped_duplicate"
)

// Attempt records one channel delivery try. Attempts feed the admin failure
// report; they are never consulted to retry automatically.
type Attempt struct {
	WarrantyID  uuid.UUID
	Channel     ChannelType
	TemplateKey string
	DedupeKey   string
	AttemptedAt time.Time
	Outcome     Outcome
	Error       string
}

// AttemptStore persists delivery attempts.
type AttemptStore interface {
	Record(ctx context.Context, attempt Attempt) error
	// ListFailures returns failed attempts since the given time, newest first.
	ListFailures(ctx context.Context, since time.Time) ([]Attempt, error)
	// Prune drops attempts older than before, returning how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// MemoryAttemptStore keeps a bounded in-memory attempt log.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	capacity int
	attempts []Attempt
}

func NewMemoryAttemptStore(capacity int) *MemoryAttemptStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryAttemptStore{capacity: capacity}
}

func (s *MemoryAttemptStore) Record(_ context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	if len(s.attempts) > s.capacity {
		s.attempts = s.attempts[len(s.attempts)-s.capacity:]
	}
	return nil
}

func (s *MemoryAttemptStore) ListFailures(_ context.Context, since time.Time) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Attempt
	for i := len(s.attempts) - 1; i >= 0; i-- {
		a := s.attempts[i]
		if a.Outcome == OutcomeFailed && !a.AttemptedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.attempts[:0]
	removed := 0
	for _, a := range s.attempts {
		if a.AttemptedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return removed, nil
}
