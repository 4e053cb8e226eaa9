// Package retention prunes aged operational data so the stores do not grow
// without bound. It runs as a daily scheduled job.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aftersales/internal/notify"
	"aftersales/internal/notify/channels/dashboard"
	"aftersales/internal/report"
)

// Settings bounds what the cleaner keeps. Immutable.
type Settings struct {
	// DashboardAge is how long read dashboard notifications are kept.
	DashboardAge time.Duration
	// AttemptAge is how long delivery attempt records are kept.
	AttemptAge time.Duration
	// ReportsKeep is how many archived reports survive pruning.
	ReportsKeep int
}

func DefaultSettings() Settings {
	return Settings{
		DashboardAge: 90 * 24 * time.Hour,
		AttemptAge:   180 * 24 * time.Hour,
		ReportsKeep:  24,
	}
}

// Cleaner prunes the dashboard, attempt and report stores. Each store is
// pruned independently; one failing store does not stop the others.
type Cleaner struct {
	dashboards dashboard.Store
	attempts   notify.AttemptStore
	reports    report.Store
	settings   Settings
	logger     *slog.Logger
}

func New(dashboards dashboard.Store, attempts notify.AttemptStore, reports report.Store, settings Settings, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		dashboards: dashboards,
		attempts:   attempts,
		reports:    reports,
		settings:   settings,
		logger:     logger,
	}
}

// Run executes one cleanup pass relative to now.
func (c *Cleaner) Run(ctx context.Context, now time.Time) error {
	var errs []error

	if c.dashboards != nil {
		removed, err := c.dashboards.PruneRead(ctx, now.Add(-c.settings.DashboardAge))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune dashboard notifications: %w", err))
		} else if removed > 0 {
			c.logger.Info("pruned dashboard notifications", "removed", removed)
		}
	}

	if c.attempts != nil {
		removed, err := c.attempts.Prune(ctx, now.Add(-c.settings.AttemptAge))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune delivery attempts: %w", err))
		} else if removed > 0 {
			c.logger.Info("pruned delivery attempts", "removed", removed)
		}
	}

	if c.reports != nil {
		removed, err := c.reports.PruneOldest(ctx, c.settings.ReportsKeep)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune archived reports: %w", err))
		} else if removed > 0 {
			c.logger.Info("pruned archived reports", "removed", removed)
		}
	}

	return errors.Join(errs...)
}
