package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"aftersales/internal/notify"
	"aftersales/internal/notify/channels/dashboard"
	"aftersales/internal/report"
)

type failingReports struct {
	report.Store
}

func (failingReports) PruneOldest(context.Context, int) (int, error) {
	return 0, errors.New("db down")
}

func TestRunPrunesAllStores(t *testing.T) {
	now := time.Date(2026, time.July, 1, 3, 0, 0, 0, time.UTC)
	ctx := context.Background()

	dashboards := dashboard.NewMemoryStore()
	old := dashboard.Notification{ID: uuid.New(), UserID: "u1", CreatedAt: now.AddDate(0, -4, 0)}
	require.NoError(t, dashboards.Append(ctx, old))
	require.NoError(t, dashboards.MarkRead(ctx, old.ID))
	require.NoError(t, dashboards.Append(ctx, dashboard.Notification{ID: uuid.New(), UserID: "u1", CreatedAt: now}))

	attempts := notify.NewMemoryAttemptStore(100)
	require.NoError(t, attempts.Record(ctx, notify.Attempt{AttemptedAt: now.AddDate(-1, 0, 0)}))
	require.NoError(t, attempts.Record(ctx, notify.Attempt{AttemptedAt: now.Add(-time.Hour), Outcome: notify.OutcomeFailed}))

	reports := report.NewMemoryStore()
	for i := 0; i < 30; i++ {
		require.NoError(t, reports.Save(ctx, report.Summary{GeneratedAt: now.AddDate(0, 0, -i)}))
	}

	cleaner := New(dashboards, attempts, reports, DefaultSettings(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, cleaner.Run(ctx, now))

	remaining, err := dashboards.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1, "only the fresh unread notification survives")

	failures, err := attempts.ListFailures(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, failures, 1)

	archived, err := reports.ListRecent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, archived, DefaultSettings().ReportsKeep)
}

func TestRunContinuesPastFailingStore(t *testing.T) {
	now := time.Now()
	ctx := context.Background()

	attempts := notify.NewMemoryAttemptStore(100)
	require.NoError(t, attempts.Record(ctx, notify.Attempt{AttemptedAt: now.AddDate(-1, 0, 0)}))

	cleaner := New(nil, attempts, failingReports{}, DefaultSettings(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := cleaner.Run(ctx, now)
	require.ErrorContains(t, err, "db down")

	removed, pruneErr := attempts.Prune(ctx, now.AddDate(-1, 0, 1))
	require.NoError(t, pruneErr)
	require.Zero(t, removed, "attempt store was already pruned despite the report failure")
}
