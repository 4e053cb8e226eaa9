package event

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aftersales/internal/warranty"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := New(discardLogger())

	var got []string
	bus.Subscribe("first", func(_ context.Context, ev warranty.Event) {
		got = append(got, "first:"+ev.Type)
	})
	bus.Subscribe("second", func(_ context.Context, ev warranty.Event) {
		got = append(got, "second:"+ev.Type)
	})

	bus.Publish(context.Background(), warranty.Event{Type: warranty.EventCreated})

	assert.Equal(t, []string{"first:warranty_created", "second:warranty_created"}, got)
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	bus := New(discardLogger())

	delivered := false
	bus.Subscribe("broken", func(_ context.Context, _ warranty.Event) {
		panic("subscriber blew up")
	})
	bus.Subscribe("healthy", func(_ context.Context, _ warranty.Event) {
		delivered = true
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), warranty.Event{
			WarrantyID: uuid.New(),
			Type:       warranty.EventStatusChanged,
		})
	})
	assert.True(t, delivered, "healthy subscriber must still receive the event")
}

func TestBusAsyncDrainsOnClose(t *testing.T) {
	bus := New(discardLogger(), WithAsync())

	var mu sync.Mutex
	count := 0
	bus.Subscribe("counter", func(_ context.Context, _ warranty.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), warranty.Event{Type: warranty.EventExpiring})
	}
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}
