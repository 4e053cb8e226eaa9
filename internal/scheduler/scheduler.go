// Package scheduler runs the periodic maintenance jobs: lifecycle sweeps,
// reports and retention cleanup. It replaces external cron triggers with an
// in-process ticker per job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one periodic task. Run receives the tick time so job logic stays
// deterministic under a fake clock.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context, now time.Time) error
}

// Scheduler ticks each registered job on its own interval. Every run happens
// on its own goroutine, so a slow run never delays the next tick or other
// jobs; job implementations are required to be idempotent under overlap.
// Panics and errors in a job are contained and logged.
type Scheduler struct {
	clock   Clock
	logger  *slog.Logger
	metrics Recorder
	jobs    []Job

	wg sync.WaitGroup
}

// Recorder receives job run outcomes. Satisfied by the metrics package.
type Recorder interface {
	Record(job, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) Record(string, string) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithMetrics(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.metrics = r
		}
	}
}

func New(clock Clock, logger *slog.Logger, jobs []Job, opts ...Option) (*Scheduler, error) {
	for _, job := range jobs {
		if job.Name == "" || job.Run == nil || job.Every <= 0 {
			return nil, fmt.Errorf("job %q is incomplete", job.Name)
		}
	}
	s := &Scheduler{
		clock:   clock,
		logger:  logger,
		metrics: noopRecorder{},
		jobs:    jobs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the tickers and returns. Cancel ctx to stop; Wait blocks
// until in-flight runs finish.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until all job loops and in-flight runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(job.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.runJob(ctx, job, now)
			}()
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Record(job.Name, "panic")
			s.logger.Error("scheduled job panicked",
				"job", job.Name,
				"panic", r,
			)
		}
	}()

	start := s.clock.Now()
	if err := job.Run(ctx, now); err != nil {
		s.metrics.Record(job.Name, "error")
		s.logger.Error("scheduled job failed",
			"job", job.Name,
			"duration", s.clock.Now().Sub(start),
			"error", err,
		)
		return
	}
	s.metrics.Record(job.Name, "ok")
	s.logger.Info("scheduled job finished",
		"job", job.Name,
		"duration", s.clock.Now().Sub(start),
	)
}
