package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aftersales/internal/warranty"
	"aftersales/internal/warranty/metrics"
	"aftersales/pkg/dates"
	"aftersales/pkg/platform/sentinel"
)

// Publisher receives lifecycle events after the state change has been
// persisted. Implementations must never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, ev warranty.Event)
}

// Deduper suppresses repeated emission of the same reminder within its time
// bucket. Seen returns true when key was already recorded.
type Deduper interface {
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Service owns the warranty state machine: it is the sole mutator of a
// record's status, computes expiry dates, and emits lifecycle events.
// Concurrency control is the store's compare-and-set on status; the service
// holds no locks.
type Service struct {
	store     warranty.Store
	settings  warranty.Settings
	publisher Publisher
	dedupe    Deduper
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for registration defaults, for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store warranty.Store, settings warranty.Settings, publisher Publisher, dedupe Deduper, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("warranty store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store is required")
	}
	s := &Service{
		store:     store,
		settings:  settings,
		publisher: publisher,
		dedupe:    dedupe,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates and persists a new warranty. The end date is always
// start date plus the resolved duration in calendar months; it is derived
// here and nowhere else. Emits warranty_created on success.
func (s *Service) Register(ctx context.Context, reg warranty.Registration) (warranty.Record, error) {
	if err := s.validate(reg); err != nil {
		return warranty.Record{}, err
	}

	if s.settings.RequireSerialNumber {
		_, err := s.store.GetBySerial(ctx, reg.SerialNumber)
		switch {
		case err == nil:
			return warranty.Record{}, warranty.ErrDuplicateSerial
		case !errors.Is(err, sentinel.ErrNotFound):
			return warranty.Record{}, fmt.Errorf("check serial uniqueness: %w", err)
		}
	}

	now := s.clock()
	start := reg.StartDate
	if start.IsZero() {
		start = now
	}
	duration := s.settings.DurationFor(reg)

	status := warranty.StatusPending
	if s.settings.AutoActivate {
		status = warranty.StatusActive
	}

	record := warranty.Record{
		ID:             uuid.New(),
		ProductID:      reg.ProductID,
		UserID:         reg.UserID,
		OrderID:        reg.OrderID,
		SerialNumber:   reg.SerialNumber,
		InvoiceNumber:  reg.InvoiceNumber,
		WarrantyType:   reg.WarrantyType,
		DurationMonths: duration,
		StartDate:      start,
		EndDate:        dates.AddCalendarMonths(start, duration),
		Status:         status,
		CreatedAt:      now,
	}

	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return warranty.Record{}, warranty.ErrDuplicateSerial
		}
		return warranty.Record{}, fmt.Errorf("insert warranty: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Registered.Inc()
	}
	s.publisher.Publish(ctx, warranty.Event{
		WarrantyID: record.ID,
		Type:       warranty.EventCreated,
		NewStatus:  record.Status,
		OccurredAt: now,
		Record:     record,
	})
	return record, nil
}

// Get loads a warranty by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (warranty.Record, error) {
	return s.store.GetByID(ctx, id)
}

// GetBySerial loads the live warranty holding serial.
func (s *Service) GetBySerial(ctx context.Context, serial string) (warranty.Record, error) {
	return s.store.GetBySerial(ctx, serial)
}

// Transition is the single choke point for status changes. It loads the
// current status, rejects anything outside the allowed set, applies the
// change with a compare-and-set write, and emits warranty_status_changed.
// A lost CAS race against an identical transition is a no-op, which is what
// makes overlapping sweeps idempotent.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, next warranty.Status) error {
	if !next.Valid() {
		return warranty.ErrInvalidTransition
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !allowed(record.Status, next) {
		return warranty.ErrInvalidTransition
	}

	applied, err := s.store.UpdateStatus(ctx, id, record.Status, next)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if !applied {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == next {
			// Another sweep or caller already applied this exact
			// transition; the record is in the requested state.
			return nil
		}
		return warranty.ErrInvalidTransition
	}

	s.metrics.RecordTransition(string(record.Status), string(next))

	snapshot := record
	snapshot.Status = next
	s.publisher.Publish(ctx, warranty.Event{
		WarrantyID:     id,
		Type:           warranty.EventStatusChanged,
		PreviousStatus: record.Status,
		NewStatus:      next,
		OccurredAt:     s.clock(),
		Record:         snapshot,
	})
	return nil
}

// SweepExpirations moves every active warranty whose end date has passed to
// expired. Safe to run repeatedly and concurrently: the CAS precondition in
// Transition guarantees one transition per record. Stops between records when
// ctx is cancelled.
func (s *Service) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	s.metrics.RecordSweep("expirations")

	candidates, err := s.store.QueryActiveExpiringBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("query expiring warranties: %w", err)
	}

	expired := 0
	for _, record := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if err := s.Transition(ctx, record.ID, warranty.StatusExpired); err != nil {
			s.logger.Error("expiry transition failed",
				"warranty_id", record.ID,
				"error", err,
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// SweepReminders emits one warranty_expiring event per (record, offset) pair
// whose end date falls in the day bucket now+offset. The dedupe key scopes
// each reminder to a calendar day, so re-running the sweep within the same
// day emits nothing new.
func (s *Service) SweepReminders(ctx context.Context, now time.Time) (int, error) {
	s.metrics.RecordSweep("reminders")

	emitted := 0
	for _, offset := range s.settings.ReminderOffsetDays {
		start, end := dates.DayWindow(now.AddDate(0, 0, offset))
		candidates, err := s.store.QueryActiveInWindow(ctx, start, end)
		if err != nil {
			return emitted, fmt.Errorf("query warranties expiring in %d days: %w", offset, err)
		}

		for _, record := range candidates {
			if err := ctx.Err(); err != nil {
				return emitted, err
			}
			key := fmt.Sprintf("reminder:%s:%d:%s", record.ID, offset, dates.DayBucket(now))
			seen, err := s.dedupe.Seen(ctx, key, 48*time.Hour)
			if err != nil {
				s.logger.Error("reminder dedupe check failed",
					"warranty_id", record.ID,
					"offset_days", offset,
					"error", err,
				)
				continue
			}
			if seen {
				continue
			}

			s.publisher.Publish(ctx, warranty.Event{
				WarrantyID: record.ID,
				Type:       warranty.EventExpiring,
				NewStatus:  record.Status,
				OccurredAt: now,
				DedupeKey:  key,
				DaysBefore: offset,
				Record:     record,
			})
			if s.metrics != nil {
				s.metrics.Reminders.Inc()
			}
			emitted++
		}
	}
	return emitted, nil
}

// allowed encodes the transition table: pending->active and active->expired,
// plus revoke from any non-terminal state. Revoked is terminal.
func allowed(from, to warranty.Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case warranty.StatusActive:
		return from == warranty.StatusPending
	case warranty.StatusExpired:
		return from == warranty.StatusActive
	case warranty.StatusRevoked:
		return true
	}
	return false
}

func (s *Service) validate(reg warranty.Registration) error {
	var missing []string
	if reg.ProductID == "" {
		missing = append(missing, "productId")
	}
	if reg.UserID == "" {
		missing = append(missing, "userId")
	}
	if s.settings.RequireSerialNumber && reg.SerialNumber == "" {
		missing = append(missing, "serialNumber")
	}
	if s.settings.RequireInvoiceNumber && reg.InvoiceNumber == "" {
		missing = append(missing, "invoiceNumber")
	}
	if reg.DurationMonths < 0 {
		missing = append(missing, "durationMonths")
	}
	if len(missing) > 0 {
		return &warranty.ValidationError{Missing: missing}
	}
	return nil
}
