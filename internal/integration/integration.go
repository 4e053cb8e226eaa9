// Package integration pushes warranty lifecycle events to external business
// systems (CRM, ticketing, accounting). Integrations are best-effort: a push
// failure is logged and counted, never surfaced to the lifecycle caller.
package integration

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"aftersales/internal/warranty"
)

// Integration is one external system connector. Push consumes a lifecycle
// event and returns the external record id it created or updated, or "" when
// the event was not relevant to this system.
type Integration interface {
	Name() string
	Push(ctx context.Context, ev warranty.Event) (externalID string, err error)
	// Ping probes connectivity with the remote system.
	Ping(ctx context.Context) error
}

// RefStore maps a warranty to its record id in an external system, as the
// host system needs it to address later updates at the remote side.
type RefStore interface {
	Set(ctx context.Context, integration string, warrantyID uuid.UUID, externalID string) error
	// Get returns "" with no error when no mapping exists.
	Get(ctx context.Context, integration string, warrantyID uuid.UUID) (string, error)
}

type refKey struct {
	integration string
	warrantyID  uuid.UUID
}

// MemoryRefStore is a map-backed RefStore.
type MemoryRefStore struct {
	mu   sync.RWMutex
	refs map[refKey]string
}

func NewMemoryRefStore() *MemoryRefStore {
	return &MemoryRefStore{refs: make(map[refKey]string)}
}

func (s *MemoryRefStore) Set(_ context.Context, integration string, warrantyID uuid.UUID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[refKey{integration, warrantyID}] = externalID
	return nil
}

func (s *MemoryRefStore) Get(_ context.Context, integration string, warrantyID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs[refKey{integration, warrantyID}], nil
}
