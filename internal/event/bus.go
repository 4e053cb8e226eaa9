package event

import (
	"context"
	"log/slog"
	"sync"

	"aftersales/internal/warranty"
)

// Handler consumes one lifecycle event. Errors are the handler's own to log;
// the bus only guards against panics so one subscriber cannot take down
// another or the publisher.
type Handler func(ctx context.Context, ev warranty.Event)

// Bus is the typed in-process stream of lifecycle events. It replaces
// host-provided hook registration with explicit subscription: the lifecycle
// service publishes, the dispatcher and the integration fan-out subscribe,
// and each subscriber is isolated by a recover-and-log boundary.
type Bus struct {
	logger *slog.Logger
	async  bool

	mu          sync.RWMutex
	subscribers []subscriber
	wg          sync.WaitGroup
}

type subscriber struct {
	name    string
	handler Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithAsync makes Publish launch each subscriber on its own goroutine, so a
// slow consumer never delays the lifecycle operation that emitted the event.
// Close drains in-flight deliveries.
func WithAsync() Option {
	return func(b *Bus) { b.async = true }
}

func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a named consumer. The name is only used for failure logs.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber{name: name, handler: handler})
}

// Publish delivers ev to every subscriber. It never returns an error: the
// authoritative state change has already been persisted by the time an event
// is published, and subscriber failures must stay local to the subscriber.
func (b *Bus) Publish(ctx context.Context, ev warranty.Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if b.async {
			// Detach from the caller's cancellation: the state change
			// already happened, side effects should not be cut short
			// by the request ending.
			detached := context.WithoutCancel(ctx)
			b.wg.Add(1)
			go func(sub subscriber) {
				defer b.wg.Done()
				b.deliver(detached, sub, ev)
			}(sub)
			continue
		}
		b.deliver(ctx, sub, ev)
	}
}

// Close waits for in-flight async deliveries to finish.
func (b *Bus) Close() {
	b.wg.Wait()
}

func (b *Bus) deliver(ctx context.Context, sub subscriber, ev warranty.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"subscriber", sub.name,
				"event_type", ev.Type,
				"warranty_id", ev.WarrantyID,
				"panic", r,
			)
		}
	}()
	sub.handler(ctx, ev)
}
