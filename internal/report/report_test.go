package report

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"aftersales/internal/notify"
	"aftersales/internal/warranty"
	warrantymem "aftersales/internal/warranty/store/memory"
)

type fakeEmail struct {
	sent map[string]notify.Message
	err  error
}

func (c *fakeEmail) Type() notify.ChannelType { return notify.ChannelEmail }

func (c *fakeEmail) Send(_ context.Context, recipient string, msg notify.Message) error {
	if c.err != nil {
		return c.err
	}
	if c.sent == nil {
		c.sent = make(map[string]notify.Message)
	}
	c.sent[recipient] = msg
	return nil
}

type ReportSuite struct {
	suite.Suite

	warranties *warrantymem.Store
	attempts   *notify.MemoryAttemptStore
	reports    *MemoryStore
	email      *fakeEmail
	now        time.Time
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportSuite))
}

func (s *ReportSuite) SetupTest() {
	s.warranties = warrantymem.New()
	s.attempts = notify.NewMemoryAttemptStore(100)
	s.reports = NewMemoryStore()
	s.email = &fakeEmail{}
	s.now = time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
}

func (s *ReportSuite) newService(settings Settings) *Service {
	svc, err := New(s.warranties, s.attempts, s.reports, s.email, settings, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	return svc
}

func (s *ReportSuite) insert(status warranty.Status, end time.Time) {
	rec := warranty.Record{
		ID:        uuid.New(),
		ProductID: "prod",
		UserID:    "user",
		StartDate: s.now.AddDate(-1, 0, 0),
		EndDate:   end,
		Status:    status,
		CreatedAt: s.now,
	}
	s.Require().NoError(s.warranties.Insert(context.Background(), rec))
}

func (s *ReportSuite) TestGenerateCountsAndArchives() {
	s.insert(warranty.StatusActive, s.now.AddDate(1, 0, 0))
	s.insert(warranty.StatusActive, s.now.Add(10*24*time.Hour))
	s.insert(warranty.StatusExpired, s.now.AddDate(0, -1, 0))
	s.insert(warranty.StatusRevoked, s.now.AddDate(0, 6, 0))

	s.Require().NoError(s.attempts.Record(context.Background(), notify.Attempt{
		Channel:     notify.ChannelSMS,
		Outcome:     notify.OutcomeFailed,
		AttemptedAt: s.now.Add(-time.Hour),
	}))

	svc := s.newService(DefaultSettings())
	summary, err := svc.Generate(context.Background(), s.now)
	s.Require().NoError(err)

	s.Equal(2, summary.CountsByStatus[warranty.StatusActive])
	s.Equal(1, summary.CountsByStatus[warranty.StatusExpired])
	s.Equal(1, summary.CountsByStatus[warranty.StatusRevoked])
	s.Equal(1, summary.ExpiringSoon, "only the active record inside the horizon counts")
	s.Equal(1, summary.FailedDeliveries)

	archived, err := s.reports.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(archived, 1)
	s.Equal(summary.ID, archived[0].ID)
}

func (s *ReportSuite) TestRunMailsRecipients() {
	s.insert(warranty.StatusActive, s.now.Add(5*24*time.Hour))

	settings := DefaultSettings()
	settings.Recipients = []string{"ops@example.com", "admin@example.com"}
	svc := s.newService(settings)

	s.Require().NoError(svc.Run(context.Background(), s.now))

	s.Require().Len(s.email.sent, 2)
	msg := s.email.sent["ops@example.com"]
	s.Contains(msg.Subject, "2026-04-01")
	s.Contains(msg.Body, "active warranties: 1")
	s.Contains(msg.Body, "expiring within 30 days: 1")
}

func (s *ReportSuite) TestRunWithoutRecipientsOnlyArchives() {
	svc := s.newService(DefaultSettings())

	s.Require().NoError(svc.Run(context.Background(), s.now))

	s.Empty(s.email.sent)
	archived, err := s.reports.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	s.Len(archived, 1)
}

func TestMemoryStorePruneOldest(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(context.Background(), Summary{
			GeneratedAt: base.AddDate(0, 0, i),
		}))
	}

	removed, err := store.PruneOldest(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	kept, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, kept, 2)
	require.Equal(t, base.AddDate(0, 0, 4), kept[0].GeneratedAt)
}
