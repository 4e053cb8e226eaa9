package notify

import "context"

// ChannelType identifies a delivery channel.
type ChannelType string

const (
	ChannelEmail     ChannelType = "email"
	ChannelSMS       ChannelType = "sms"
	ChannelDashboard ChannelType = "dashboard"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Subject string
	Body    string
}

// Channel delivers a rendered message to one recipient. Implementations must
// respect ctx deadlines; the dispatcher bounds every send with a timeout and
// treats a deadline hit as a delivery failure.
type Channel interface {
	Type() ChannelType
	Send(ctx context.Context, recipient string, msg Message) error
}
