package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/config"
	"github.com/hazz-dev/easycheck/internal/state"
)

// Runner evaluates the configured checks once.
type Runner interface {
	RunChecks(ctx context.Context) []checker.Result
}

// Cycle describes one completed evaluation.
type Cycle struct {
	Results  []checker.Result
	Previous state.Snapshot
	Snapshot state.Snapshot
	Elapsed  time.Duration
}

// Scheduler runs check cycles forever with a fixed delay between the end
// of one cycle and the start of the next.
type Scheduler struct {
	runner   Runner
	holder   *state.Holder
	interval time.Duration
	onCycle  func(Cycle)
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(runner Runner, holder *state.Holder, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidInterval, interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		holder:   holder,
		interval: interval,
		logger:   logger,
	}, nil
}

// SetOnCycle sets the callback invoked after each published cycle.
// It must be called before Start.
func (s *Scheduler) SetOnCycle(fn func(Cycle)) {
	s.onCycle = fn
}

// Start runs the first cycle immediately in a background goroutine, then
// one cycle every interval. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Wait blocks until the loop goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.RunOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// RunOnce evaluates every check, publishes the resulting snapshot and
// returns it. Cancelling ctx does not abort a cycle already in flight;
// each check stays bounded by its own timeout.
func (s *Scheduler) RunOnce(ctx context.Context) state.Snapshot {
	start := time.Now()
	prev := s.holder.Read()

	results := s.runner.RunChecks(context.WithoutCancel(ctx))
	snap := state.FromResults(results, time.Now())
	s.holder.Publish(snap)

	elapsed := time.Since(start)
	for _, r := range results {
		s.logger.Debug("check result",
			"check", r.Check,
			"status", r.Status,
			"reason", r.Reason,
			"response_time", r.ResponseTime,
			"error", r.Error,
		)
	}
	s.logger.Info("check cycle complete",
		"status", snap.Status,
		"changed", prev.Status != snap.Status,
		"failures", len(snap.Failures),
		"elapsed", elapsed,
	)

	if s.onCycle != nil {
		s.onCycle(Cycle{
			Results:  results,
			Previous: prev,
			Snapshot: snap,
			Elapsed:  elapsed,
		})
	}
	return snap
}
