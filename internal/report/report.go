// Package report builds the periodic warranty system report: counts by
// status, upcoming expirations and delivery failures, archived and mailed to
// the configured recipients.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aftersales/internal/notify"
	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// Summary is one generated report.
type Summary struct {
	ID               uuid.UUID
	GeneratedAt      time.Time
	CountsByStatus   map[warranty.Status]int
	ExpiringSoon     int
	FailedDeliveries int
}

// Store archives generated reports.
type Store interface {
	Save(ctx context.Context, s Summary) error
	// ListRecent returns reports newest first, at most limit.
	ListRecent(ctx context.Context, limit int) ([]Summary, error)
	// PruneOldest removes the oldest reports beyond keep, returning how many
	// were removed.
	PruneOldest(ctx context.Context, keep int) (int, error)
}

// Settings controls report content and delivery. Immutable.
type Settings struct {
	// ExpiringHorizon is how far ahead a warranty counts as expiring soon.
	ExpiringHorizon time.Duration
	// FailureLookback bounds the delivery failure count.
	FailureLookback time.Duration
	Recipients      []string
	SiteName        string
	SendTimeout     time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ExpiringHorizon: 30 * 24 * time.Hour,
		FailureLookback: 7 * 24 * time.Hour,
		SiteName:        "After-Sales Service",
		SendTimeout:     10 * time.Second,
	}
}

// Service generates, archives and mails reports.
type Service struct {
	warranties warranty.Store
	attempts   notify.AttemptStore
	reports    Store
	email      notify.Channel
	settings   Settings
	logger     *slog.Logger
}

func New(warranties warranty.Store, attempts notify.AttemptStore, reports Store, email notify.Channel, settings Settings, logger *slog.Logger) (*Service, error) {
	if warranties == nil || attempts == nil || reports == nil {
		return nil, fmt.Errorf("warranty store, attempt store and report store are required")
	}
	return &Service{
		warranties: warranties,
		attempts:   attempts,
		reports:    reports,
		email:      email,
		settings:   settings,
		logger:     logger,
	}, nil
}

// Generate assembles the summary for the given time and archives it.
func (s *Service) Generate(ctx context.Context, now time.Time) (Summary, error) {
	counts, err := s.warranties.CountByStatus(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count warranties: %w", err)
	}

	expiring, err := s.warranties.QueryActiveInWindow(ctx, now, now.Add(s.settings.ExpiringHorizon))
	if err != nil {
		return Summary{}, fmt.Errorf("query expiring warranties: %w", err)
	}

	failures, err := s.attempts.ListFailures(ctx, now.Add(-s.settings.FailureLookback))
	if err != nil {
		return Summary{}, fmt.Errorf("list delivery failures: %w", err)
	}

	summary := Summary{
		ID:               uuid.New(),
		GeneratedAt:      now,
		CountsByStatus:   counts,
		ExpiringSoon:     len(expiring),
		FailedDeliveries: len(failures),
	}
	if err := s.reports.Save(ctx, summary); err != nil {
		return Summary{}, fmt.Errorf("archive report: %w", err)
	}
	return summary, nil
}

// Run generates the report and mails it. Delivery failures are logged, not
// returned: the archived report is the durable outcome.
func (s *Service) Run(ctx context.Context, now time.Time) error {
	summary, err := s.Generate(ctx, now)
	if err != nil {
		return err
	}

	if s.email == nil || len(s.settings.Recipients) == 0 {
		return nil
	}

	msg := notify.Render(notify.DefaultTemplates()[notify.TemplatePeriodicReport], map[string]string{
		"date":                dates.DayBucket(now),
		"active_warranties":   fmt.Sprintf("%d", summary.CountsByStatus[warranty.StatusActive]),
		"expired_warranties":  fmt.Sprintf("%d", summary.CountsByStatus[warranty.StatusExpired]),
		"expiring_warranties": fmt.Sprintf("%d", summary.ExpiringSoon),
		"site_name":           s.settings.SiteName,
	})

	for _, recipient := range s.settings.Recipients {
		sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		err := s.email.Send(sendCtx, recipient, msg)
		cancel()
		if err != nil {
			s.logger.Error("report delivery failed",
				"recipient", recipient,
				"error", err,
			)
		}
	}
	return nil
}
