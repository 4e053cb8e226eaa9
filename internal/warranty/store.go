package warranty

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store abstracts warranty persistence. Implementations are interface-driven
// so the lifecycle service stays testable against the in-memory variant and
// swappable onto PostgreSQL without rewiring business code.
//
// UpdateStatus is the concurrency-control discipline for the whole engine:
// the write applies only when the persisted status still matches expected, so
// overlapping sweeps cannot double-apply a transition. No global lock exists.
type Store interface {
	Insert(ctx context.Context, record Record) error
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	GetBySerial(ctx context.Context, serial string) (Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)
	// QueryActiveExpiringBefore returns active records with EndDate <= cutoff.
	QueryActiveExpiringBefore(ctx context.Context, cutoff time.Time) ([]Record, error)
	// QueryActiveInWindow returns active records with start <= EndDate < end.
	QueryActiveInWindow(ctx context.Context, start, end time.Time) ([]Record, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
