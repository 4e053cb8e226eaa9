package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"aftersales/internal/warranty"
	"aftersales/pkg/platform/sentinel"
)

// Store is the in-memory warranty store used by unit tests and single-node
// deployments. All methods copy records out so callers never share state.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]warranty.Record
}

func New() *Store {
	return &Store{records: make(map[uuid.UUID]warranty.Record)}
}

// Insert rejects a record whose serial number is already held by a live
// (non-revoked) record. The check runs under the write lock, so concurrent
// registrations of the same serial cannot both succeed.
func (s *Store) Insert(_ context.Context, record warranty.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	if record.SerialNumber != "" {
		for _, existing := range s.records {
			if existing.SerialNumber == record.SerialNumber && existing.Status != warranty.StatusRevoked {
				return sentinel.ErrConflict
			}
		}
	}
	s.records[record.ID] = record
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (warranty.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return warranty.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

// GetBySerial returns the most recently created live (non-revoked) record
// holding serial. Revoked records release their serial for re-registration.
func (s *Store) GetBySerial(_ context.Context, serial string) (warranty.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found warranty.Record
	var ok bool
	for _, record := range s.records {
		if record.SerialNumber != serial || record.Status == warranty.StatusRevoked {
			continue
		}
		if !ok || record.CreatedAt.After(found.CreatedAt) {
			found, ok = record, true
		}
	}
	if !ok {
		return warranty.Record{}, sentinel.ErrNotFound
	}
	return found, nil
}

// UpdateStatus applies the transition only when the stored status still equals
// expected. Returning false (not an error) lets sweeps treat lost races as
// already-handled records.
func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, expected, next warranty.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if record.Status != expected {
		return false, nil
	}
	record.Status = next
	s.records[id] = record
	return true, nil
}

func (s *Store) QueryActiveExpiringBefore(_ context.Context, cutoff time.Time) ([]warranty.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warranty.Record
	for _, record := range s.records {
		if record.Status == warranty.StatusActive && !record.EndDate.After(cutoff) {
			out = append(out, record)
		}
	}
	sortByEndDate(out)
	return out, nil
}

func (s *Store) QueryActiveInWindow(_ context.Context, start, end time.Time) ([]warranty.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warranty.Record
	for _, record := range s.records {
		if record.Status != warranty.StatusActive {
			continue
		}
		if !record.EndDate.Before(start) && record.EndDate.Before(end) {
			out = append(out, record)
		}
	}
	sortByEndDate(out)
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[warranty.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[warranty.Status]int)
	for _, record := range s.records {
		counts[record.Status]++
	}
	return counts, nil
}

func sortByEndDate(records []warranty.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EndDate.Equal(records[j].EndDate) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].EndDate.Before(records[j].EndDate)
	})
}
