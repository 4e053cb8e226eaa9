package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	created chan struct{}
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, created: make(chan struct{}, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	c.created <- struct{}{}
	return t
}

func (c *fakeClock) waitTickers(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.created:
		case <-time.After(time.Second):
			t.Fatal("ticker was not created in time")
		}
	}
}

// fire advances the clock and delivers a tick to every registered ticker.
func (c *fakeClock) fire(at time.Time) {
	c.mu.Lock()
	c.now = at
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, t := range tickers {
		t.ch <- at
	}
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{outcomes: make(map[string][]string)}
}

func (r *captureRecorder) Record(job, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[job] = append(r.outcomes[job], outcome)
}

func (r *captureRecorder) get(job string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes[job]...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJobReceivesTickTime(t *testing.T) {
	clock := newFakeClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	got := make(chan time.Time, 1)

	sched, err := New(clock, discardLogger(), []Job{{
		Name:  "sweep",
		Every: 24 * time.Hour,
		Run: func(_ context.Context, now time.Time) error {
			got <- now
			return nil
		},
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	clock.waitTickers(t, 1)

	tick := time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)
	clock.fire(tick)

	select {
	case now := <-got:
		require.Equal(t, tick, now)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}

	cancel()
	sched.Wait()
}

func TestPanicAndErrorAreContained(t *testing.T) {
	clock := newFakeClock(time.Now())
	recorder := newCaptureRecorder()
	healthyRuns := make(chan struct{}, 4)

	sched, err := New(clock, discardLogger(), []Job{
		{
			Name:  "panicky",
			Every: time.Hour,
			Run: func(context.Context, time.Time) error {
				panic("boom")
			},
		},
		{
			Name:  "flaky",
			Every: time.Hour,
			Run: func(context.Context, time.Time) error {
				return errors.New("db down")
			},
		},
		{
			Name:  "healthy",
			Every: time.Hour,
			Run: func(context.Context, time.Time) error {
				healthyRuns <- struct{}{}
				return nil
			},
		},
	}, WithMetrics(recorder))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	clock.waitTickers(t, 3)

	clock.fire(time.Now())
	select {
	case <-healthyRuns:
	case <-time.After(time.Second):
		t.Fatal("healthy job did not run on first tick")
	}

	// A panicking neighbor must not stop later ticks.
	clock.fire(time.Now())
	select {
	case <-healthyRuns:
	case <-time.After(time.Second):
		t.Fatal("healthy job did not run on second tick")
	}

	cancel()
	sched.Wait()

	require.Contains(t, recorder.get("panicky"), "panic")
	require.Contains(t, recorder.get("flaky"), "error")
	require.Contains(t, recorder.get("healthy"), "ok")
}

func TestIncompleteJobIsRejected(t *testing.T) {
	_, err := New(newFakeClock(time.Now()), discardLogger(), []Job{{Name: "noop"}})
	require.Error(t, err)
}

func TestStopViaContext(t *testing.T) {
	clock := newFakeClock(time.Now())
	sched, err := New(clock, discardLogger(), []Job{{
		Name:  "sweep",
		Every: time.Hour,
		Run:   func(context.Context, time.Time) error { return nil },
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	clock.waitTickers(t, 1)
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
