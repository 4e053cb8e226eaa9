package integration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aftersales/internal/integration/metrics"
	"aftersales/internal/warranty"
)

// defaultPushTimeout bounds every outbound call. Events arrive on a detached
// context, so without a deadline one hung endpoint would stall the fan-out
// goroutine forever.
const defaultPushTimeout = 10 * time.Second

// Fanout delivers each lifecycle event to every configured integration.
// Integrations are isolated from one another: a CRM outage never stops the
// ticketing push for the same event. External ids returned by a push are
// recorded so later updates can address the remote record.
//
// Fanout accepts integrations through the Integration interface, so a
// retrying or queueing decorator can wrap any connector without changes here.
type Fanout struct {
	integrations []Integration
	refs         RefStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	pushTimeout  time.Duration
}

// Option configures a Fanout.
type Option func(*Fanout)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) { f.metrics = m }
}

// WithPushTimeout overrides the per-call deadline applied to every push and
// connection check.
func WithPushTimeout(timeout time.Duration) Option {
	return func(f *Fanout) {
		if timeout > 0 {
			f.pushTimeout = timeout
		}
	}
}

func NewFanout(integrations []Integration, refs RefStore, logger *slog.Logger, opts ...Option) *Fanout {
	f := &Fanout{
		integrations: integrations,
		refs:         refs,
		logger:       logger,
		pushTimeout:  defaultPushTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle is the bus subscriber entry point.
func (f *Fanout) Handle(ctx context.Context, ev warranty.Event) {
	for _, in := range f.integrations {
		pushCtx, cancel := context.WithTimeout(ctx, f.pushTimeout)
		externalID, err := in.Push(pushCtx, ev)
		cancel()
		if err != nil {
			f.metrics.Record(in.Name(), "failed")
			f.logger.Error("integration push failed",
				"integration", in.Name(),
				"warranty_id", ev.WarrantyID,
				"event_type", ev.Type,
				"error", err,
			)
			continue
		}
		if externalID == "" {
			continue
		}
		f.metrics.Record(in.Name(), "pushed")
		if err := f.refs.Set(ctx, in.Name(), ev.WarrantyID, externalID); err != nil {
			f.logger.Error("recording external reference failed",
				"integration", in.Name(),
				"warranty_id", ev.WarrantyID,
				"external_id", externalID,
				"error", err,
			)
		}
	}
}

// CheckConnections probes every integration concurrently and reports
// reachability by name.
func (f *Fanout) CheckConnections(ctx context.Context) map[string]bool {
	var mu sync.Mutex
	status := make(map[string]bool, len(f.integrations))

	g, ctx := errgroup.WithContext(ctx)
	for _, in := range f.integrations {
		in := in
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, f.pushTimeout)
			defer cancel()
			err := in.Ping(pingCtx)
			if err != nil {
				f.logger.Warn("integration connection check failed",
					"integration", in.Name(),
					"error", err,
				)
			}
			mu.Lock()
			status[in.Name()] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return status
}
