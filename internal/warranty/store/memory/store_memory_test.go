package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aftersales/internal/warranty"
	"aftersales/pkg/platform/sentinel"
)

func record(serial string, status warranty.Status, end time.Time) warranty.Record {
	return warranty.Record{
		ID:           uuid.New(),
		ProductID:    "prod-1",
		UserID:       "user-1",
		SerialNumber: serial,
		Status:       status,
		StartDate:    end.AddDate(-1, 0, 0),
		EndDate:      end,
		CreatedAt:    end.AddDate(-1, 0, 0),
	}
}

func TestUpdateStatusPrecondition(t *testing.T) {
	ctx := context.Background()
	store := New()
	end := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	rec := record("SN-1", warranty.StatusActive, end)
	require.NoError(t, store.Insert(ctx, rec))

	applied, err := store.UpdateStatus(ctx, rec.ID, warranty.StatusActive, warranty.StatusExpired)
	require.NoError(t, err)
	assert.True(t, applied)

	// Second writer with a stale expectation loses the race.
	applied, err = store.UpdateStatus(ctx, rec.ID, warranty.StatusActive, warranty.StatusExpired)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = store.UpdateStatus(ctx, uuid.New(), warranty.StatusActive, warranty.StatusExpired)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInsertRejectsDuplicateLiveSerial(t *testing.T) {
	ctx := context.Background()
	store := New()
	end := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	first := record("SN-RACE", warranty.StatusActive, end)
	require.NoError(t, store.Insert(ctx, first))

	second := record("SN-RACE", warranty.StatusActive, end)
	assert.ErrorIs(t, store.Insert(ctx, second), sentinel.ErrConflict)

	// Revoking the holder releases the serial.
	applied, err := store.UpdateStatus(ctx, first.ID, warranty.StatusActive, warranty.StatusRevoked)
	require.NoError(t, err)
	require.True(t, applied)
	assert.NoError(t, store.Insert(ctx, second))

	// Records without a serial never collide with each other.
	require.NoError(t, store.Insert(ctx, record("", warranty.StatusActive, end)))
	assert.NoError(t, store.Insert(ctx, record("", warranty.StatusActive, end)))
}

func TestGetBySerialIgnoresRevoked(t *testing.T) {
	ctx := context.Background()
	store := New()
	end := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	revoked := record("SN-1", warranty.StatusRevoked, end)
	require.NoError(t, store.Insert(ctx, revoked))

	_, err := store.GetBySerial(ctx, "SN-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	live := record("SN-1", warranty.StatusActive, end)
	live.CreatedAt = revoked.CreatedAt.Add(time.Hour)
	require.NoError(t, store.Insert(ctx, live))

	got, err := store.GetBySerial(ctx, "SN-1")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}

func TestWindowQueries(t *testing.T) {
	ctx := context.Background()
	store := New()
	day := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	inWindow := record("SN-IN", warranty.StatusActive, day.Add(6*time.Hour))
	before := record("SN-BEFORE", warranty.StatusActive, day.AddDate(0, 0, -3))
	after := record("SN-AFTER", warranty.StatusActive, day.AddDate(0, 0, 3))
	pending := record("SN-PEND", warranty.StatusPending, day.Add(6*time.Hour))
	for _, rec := range []warranty.Record{inWindow, before, after, pending} {
		require.NoError(t, store.Insert(ctx, rec))
	}

	got, err := store.QueryActiveInWindow(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inWindow.ID, got[0].ID)

	expiring, err := store.QueryActiveExpiringBefore(ctx, day)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, before.ID, expiring[0].ID)
}
