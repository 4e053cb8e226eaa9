package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aftersales/internal/notify"
)

// Notification is an in-app message shown on the user's dashboard.
type Notification struct {
	ID        uuid.UUID
	UserID    string
	Subject   string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Store persists dashboard notifications.
type Store interface {
	Append(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	// PruneRead drops read notifications created before the given time.
	PruneRead(ctx context.Context, before time.Time) (int, error)
}

// Channel writes notifications to the dashboard store. The recipient is the
// user id, not an address.
type Channel struct {
	store Store
	clock func() time.Time
}

func New(store Store) *Channel {
	return &Channel{store: store, clock: time.Now}
}

// WithClock overrides the time source, for tests.
func (c *Channel) WithClock(clock func() time.Time) *Channel {
	c.clock = clock
	return c
}

func (c *Channel) Type() notify.ChannelType {
	return notify.ChannelDashboard
}

func (c *Channel) Send(ctx context.Context, recipient string, msg notify.Message) error {
	return c.store.Append(ctx, Notification{
		ID:        uuid.New(),
		UserID:    recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		CreatedAt: c.clock(),
	})
}
