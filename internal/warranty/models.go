package warranty

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a warranty registration.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusRevoked
}

// Record is a single warranty registration. The lifecycle service is the sole
// mutator of Status; every other field is fixed at registration time.
type Record struct {
	ID             uuid.UUID
	ProductID      string
	UserID         string
	OrderID        string
	SerialNumber   string
	InvoiceNumber  string
	WarrantyType   string
	DurationMonths int
	StartDate      time.Time
	EndDate        time.Time
	Status         Status
	CreatedAt      time.Time
}

// Registration carries the caller-supplied fields for a new warranty.
// EndDate and Status are derived by the service, never accepted from callers.
type Registration struct {
	ProductID      string
	UserID         string
	OrderID        string
	SerialNumber   string
	InvoiceNumber  string
	WarrantyType   string
	DurationMonths int
	StartDate      time.Time
}

// Event types emitted by the lifecycle service.
const (
	EventCreated       = "warranty_created"
	EventStatusChanged = "warranty_status_changed"
	EventExpiring      = "warranty_expiring"
)

// Event records a lifecycle transition or reminder. Consumers treat it as
// read-only; durability of downstream side effects is the consumer's problem.
type Event struct {
	WarrantyID     uuid.UUID
	Type           string
	PreviousStatus Status
	NewStatus      Status
	OccurredAt     time.Time
	// DedupeKey scopes side effects for reminder events; empty for
	// transition events, which are already guarded by the status CAS.
	DedupeKey string
	// DaysBefore is the reminder offset for EventExpiring, zero otherwise.
	DaysBefore int
	// Snapshot of the record as of the event, so consumers render
	// notifications without re-reading the store.
	Record Record
}
