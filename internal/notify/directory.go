package notify

import (
	"context"
	"sync"

	"aftersales/pkg/platform/sentinel"
)

// Contact is the delivery endpoints known for a user.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Directory resolves a user id to contact endpoints. The host system owns
// user data; the dispatcher only needs this lookup.
type Directory interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

// MemoryDirectory is a map-backed Directory for tests and standalone runs.
type MemoryDirectory struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{contacts: make(map[string]Contact)}
}

func (d *MemoryDirectory) Put(userID string, contact Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[userID] = contact
}

func (d *MemoryDirectory) Lookup(_ context.Context, userID string) (Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contact, ok := d.contacts[userID]
	if !ok {
		return Contact{}, sentinel.ErrNotFound
	}
	return contact, nil
}
