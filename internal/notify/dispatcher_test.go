package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aftersales/internal/dedupe"
	"aftersales/internal/notify"
	"aftersales/internal/warranty"
)

type sentMessage struct {
	recipient string
	msg       notify.Message
}

type fakeChannel struct {
	typ  notify.ChannelType
	sent []sentMessage
	err  error
}

func (c *fakeChannel) Type() notify.ChannelType { return c.typ }

func (c *fakeChannel) Send(_ context.Context, recipient string, msg notify.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{recipient: recipient, msg: msg})
	return nil
}

type DispatcherSuite struct {
	suite.Suite

	email     *fakeChannel
	sms       *fakeChannel
	directory *notify.MemoryDirectory
	attempts  *notify.MemoryAttemptStore
	settings  notify.Settings
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.email = &fakeChannel{typ: notify.ChannelEmail}
	s.sms = &fakeChannel{typ: notify.ChannelSMS}
	s.directory = notify.NewMemoryDirectory()
	s.directory.Put("user-1", notify.Contact{
		Name:  "Jamie Doe",
		Email: "jamie@example.com",
		Phone: "+15550001111",
	})
	s.attempts = notify.NewMemoryAttemptStore(100)
	s.settings = notify.DefaultSettings()
}

func (s *DispatcherSuite) newDispatcher() *notify.Dispatcher {
	d, err := notify.New(
		[]notify.Channel{s.email, s.sms},
		s.directory,
		dedupe.NewMemory(100),
		s.attempts,
		s.settings,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.Require().NoError(err)
	return d
}

func (s *DispatcherSuite) event(eventType string) warranty.Event {
	end := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	return warranty.Event{
		WarrantyID:     uuid.New(),
		Type:           eventType,
		PreviousStatus: warranty.StatusPending,
		NewStatus:      warranty.StatusActive,
		OccurredAt:     time.Date(2026, time.February, 13, 9, 0, 0, 0, time.UTC),
		DaysBefore:     30,
		Record: warranty.Record{
			ProductID:    "prod-42",
			UserID:       "user-1",
			SerialNumber: "SN-100",
			EndDate:      end,
			Status:       warranty.StatusActive,
		},
	}
}

func (s *DispatcherSuite) TestDeliversToAllEnabledChannels() {
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventCreated))

	s.Require().Len(s.email.sent, 1)
	s.Equal("jamie@example.com", s.email.sent[0].recipient)
	s.Contains(s.email.sent[0].msg.Body, "Jamie Doe")
	s.Contains(s.email.sent[0].msg.Body, "prod-42")
	s.Contains(s.email.sent[0].msg.Body, "2026-03-15")

	s.Require().Len(s.sms.sent, 1)
	s.Equal("+15550001111", s.sms.sent[0].recipient)
}

func (s *DispatcherSuite) TestChannelFailureIsIsolated() {
	s.sms.err = errors.New("gateway down")
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventExpiring))

	s.Len(s.email.sent, 1, "email must still deliver when sms fails")

	failures, err := s.attempts.ListFailures(context.Background(), time.Time{})
	s.Require().NoError(err)
	s.Require().Len(failures, 1)
	s.Equal(notify.ChannelSMS, failures[0].Channel)
	s.Contains(failures[0].Error, "gateway down")
}

func (s *DispatcherSuite) TestDuplicateEventIsSuppressed() {
	d := s.newDispatcher()
	ev := s.event(warranty.EventExpiring)

	d.Handle(context.Background(), ev)
	d.Handle(context.Background(), ev)

	s.Len(s.email.sent, 1, "second delivery for the same key must be suppressed")
	s.Len(s.sms.sent, 1)
}

func (s *DispatcherSuite) TestDisabledChannelIsSkipped() {
	s.settings.EnabledChannels[notify.ChannelSMS] = false
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventCreated))

	s.Len(s.email.sent, 1)
	s.Empty(s.sms.sent)
}

func (s *DispatcherSuite) TestMissingRecipientSkipsChannel() {
	s.directory.Put("user-1", notify.Contact{Name: "Jamie Doe", Email: "jamie@example.com"})
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventCreated))

	s.Len(s.email.sent, 1)
	s.Empty(s.sms.sent, "no phone on file means no sms attempt")
}

func (s *DispatcherSuite) TestNameFallsBackToEmailLocalPart() {
	s.directory.Put("user-1", notify.Contact{Email: "jamie.doe@example.com"})
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventCreated))

	s.Require().Len(s.email.sent, 1)
	s.Contains(s.email.sent[0].msg.Body, "Jamie Doe")
}

func (s *DispatcherSuite) TestUnknownUserIsDropped() {
	d := s.newDispatcher()
	ev := s.event(warranty.EventCreated)
	ev.Record.UserID = "nobody"

	d.Handle(context.Background(), ev)

	s.Empty(s.email.sent)
	s.Empty(s.sms.sent)
}

func (s *DispatcherSuite) TestAdminCopyGoesOverEmail() {
	s.settings.NotifyAdmin = true
	s.settings.AdminEmail = "admin@example.com"
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventStatusChanged))

	s.Require().Len(s.email.sent, 2)
	s.Equal("jamie@example.com", s.email.sent[0].recipient)
	s.Equal("admin@example.com", s.email.sent[1].recipient)
}

func (s *DispatcherSuite) TestAdminCopyIsDedupedAndRecorded() {
	s.settings.NotifyAdmin = true
	s.settings.AdminEmail = "admin@example.com"
	d := s.newDispatcher()
	ev := s.event(warranty.EventExpiring)

	d.Handle(context.Background(), ev)
	d.Handle(context.Background(), ev)

	// One user copy and one admin copy; repeats are suppressed for both.
	s.Require().Len(s.email.sent, 2)
	s.Equal("jamie@example.com", s.email.sent[0].recipient)
	s.Equal("admin@example.com", s.email.sent[1].recipient)
}

func (s *DispatcherSuite) TestAdminCopyFailureIsRecorded() {
	s.settings.NotifyAdmin = true
	s.settings.AdminEmail = "admin@example.com"
	s.settings.EnabledChannels[notify.ChannelSMS] = false
	s.settings.EnabledChannels[notify.ChannelDashboard] = false
	s.email.err = errors.New("smtp down")
	d := s.newDispatcher()

	d.Handle(context.Background(), s.event(warranty.EventExpiring))

	failures, err := s.attempts.ListFailures(context.Background(), time.Time{})
	s.Require().NoError(err)
	s.Len(failures, 2, "user copy and admin copy failures must both be logged")
}

func (s *DispatcherSuite) TestUnknownEventTypeIsIgnored() {
	d := s.newDispatcher()
	ev := s.event("warranty_archived")

	d.Handle(context.Background(), ev)

	s.Empty(s.email.sent)
	s.Empty(s.sms.sent)
}
