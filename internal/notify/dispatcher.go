package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"aftersales/internal/notify/metrics"
	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
	pkgemail "aftersales/pkg/email"
)

// Deduper suppresses duplicate sends for a dedupe key within its time bucket.
type Deduper interface {
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Settings controls which channels are active and how sends are bounded.
// Immutable after construction.
type Settings struct {
	EnabledChannels map[ChannelType]bool
	SiteName        string
	// NotifyAdmin sends an extra email copy of every notification.
	NotifyAdmin bool
	AdminEmail  string
	SendTimeout time.Duration
	DedupeTTL   time.Duration
}

// DefaultSettings enables all channels with conservative bounds.
func DefaultSettings() Settings {
	return Settings{
		EnabledChannels: map[ChannelType]bool{
			ChannelEmail:     true,
			ChannelSMS:       true,
			ChannelDashboard: true,
		},
		SiteName:    "After-Sales Service",
		SendTimeout: 10 * time.Second,
		DedupeTTL:   48 * time.Hour,
	}
}

// Dispatcher consumes lifecycle events and delivers notifications through
// every enabled channel. Channels fail independently: an SMS gateway outage
// never blocks email delivery, and no channel failure ever reaches the
// lifecycle caller. Before each send the dedupe key is checked so overlapping
// sweeps cannot double-notify.
type Dispatcher struct {
	channels  []Channel
	templates map[string]Template
	directory Directory
	dedupe    Deduper
	attempts  AttemptStore
	settings  Settings
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithMetrics attaches delivery metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(channels []Channel, directory Directory, dedupe Deduper, attempts AttemptStore, settings Settings, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if directory == nil {
		return nil, fmt.Errorf("contact directory is required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt store is required")
	}
	d := &Dispatcher{
		channels:  channels,
		templates: DefaultTemplates(),
		directory: directory,
		dedupe:    dedupe,
		attempts:  attempts,
		settings:  settings,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Handle is the bus subscriber entry point. It never returns an error; every
// failure is logged and recorded as a failed attempt.
func (d *Dispatcher) Handle(ctx context.Context, ev warranty.Event) {
	key, ok := TemplateKeyFor(ev.Type)
	if !ok {
		d.logger.Warn("no notification template for event type", "event_type", ev.Type)
		return
	}
	tpl, ok := d.templates[key]
	if !ok {
		d.logger.Warn("notification template missing", "template", key)
		return
	}

	contact, err := d.directory.Lookup(ctx, ev.Record.UserID)
	if err != nil {
		d.logger.Error("contact lookup failed",
			"warranty_id", ev.WarrantyID,
			"user_id", ev.Record.UserID,
			"error", err,
		)
		return
	}

	name := contact.Name
	if name == "" && contact.Email != "" {
		name = pkgemail.DeriveDisplayName(contact.Email)
	}
	msg := Render(tpl, EventVars(ev, name, d.settings.SiteName))

	for _, channel := range d.channels {
		if !d.settings.EnabledChannels[channel.Type()] {
			continue
		}
		recipient := recipientFor(channel.Type(), ev, contact)
		if recipient == "" {
			d.logger.Warn("no recipient for channel, skipping",
				"warranty_id", ev.WarrantyID,
				"channel", channel.Type(),
			)
			continue
		}
		d.deliver(ctx, channel, ev, key, recipient, msg)
	}

	// The admin copy goes through the same delivery path as the user copy, so
	// it is deduped and recorded like any other attempt. The recipient in the
	// dedupe key keeps it from colliding with the user's email.
	if d.settings.NotifyAdmin && d.settings.AdminEmail != "" {
		for _, channel := range d.channels {
			if channel.Type() == ChannelEmail {
				d.deliver(ctx, channel, ev, key, d.settings.AdminEmail, msg)
				break
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, ev warranty.Event, templateKey, recipient string, msg Message) {
	key := d.dedupeKey(ev, channel.Type(), recipient)
	attempt := Attempt{
		WarrantyID:  ev.WarrantyID,
		Channel:     channel.Type(),
		TemplateKey: templateKey,
		DedupeKey:   key,
		AttemptedAt: d.clock(),
	}

	seen, err := d.dedupe.Seen(ctx, key, d.settings.DedupeTTL)
	if err != nil {
		// A broken dedupe store must not silence notifications;
		// at-least-once wins over duplicate suppression.
		d.logger.Error("dedupe check failed, sending anyway",
			"warranty_id", ev.WarrantyID,
			"channel", channel.Type(),
			"error", err,
		)
	} else if seen {
		attempt.Outcome = OutcomeDuplicate
		d.record(ctx, attempt)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.settings.SendTimeout)
	defer cancel()

	if err := channel.Send(sendCtx, recipient, msg); err != nil {
		attempt.Outcome = OutcomeFailed
		attempt.Error = err.Error()
		d.record(ctx, attempt)
		d.logger.Error("notification delivery failed",
			"warranty_id", ev.WarrantyID,
			"channel", channel.Type(),
			"template", templateKey,
			"error", err,
		)
		return
	}

	attempt.Outcome = OutcomeDelivered
	d.record(ctx, attempt)
}

func (d *Dispatcher) record(ctx context.Context, attempt Attempt) {
	d.metrics.Record(string(attempt.Channel), string(attempt.Outcome))
	if err := d.attempts.Record(ctx, attempt); err != nil {
		d.logger.Error("recording notification attempt failed",
			"warranty_id", attempt.WarrantyID,
			"channel", attempt.Channel,
			"error", err,
		)
	}
}

// dedupeKey is a stable hash of (warranty, event type, reminder offset,
// channel, recipient) scoped to the calendar day of the event.
func (d *Dispatcher) dedupeKey(ev warranty.Event, channel ChannelType, recipient string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s|%s|%s",
		ev.WarrantyID, ev.Type, ev.DaysBefore, channel, recipient, dates.DayBucket(ev.OccurredAt)))
	return "notify:" + hex.EncodeToString(sum[:16])
}

func recipientFor(channelType ChannelType, ev warranty.Event, contact Contact) string {
	switch channelType {
	case ChannelEmail:
		return contact.Email
	case ChannelSMS:
		return contact.Phone
	case ChannelDashboard:
		return ev.Record.UserID
	}
	return ""
}
