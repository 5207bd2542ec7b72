package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/state"
)

// abandonGrace is added to a checker's own timeout before the executor
// stops waiting for it.
const abandonGrace = 500 * time.Millisecond

// Executor runs every configured checker concurrently.
type Executor struct {
	checkers []checker.Checker
	logger   *slog.Logger
}

// NewExecutor creates an Executor. Pass nil logger to use the default logger.
func NewExecutor(checkers []checker.Checker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{checkers: checkers, logger: logger}
}

// Len returns the number of configured checkers.
func (e *Executor) Len() int {
	return len(e.checkers)
}

// RunChecks evaluates all checkers in parallel and returns their results in
// configuration order. A failing or panicking checker never prevents the
// others from being evaluated.
func (e *Executor) RunChecks(ctx context.Context) []checker.Result {
	results := make([]checker.Result, len(e.checkers))

	var g errgroup.Group
	for i, c := range e.checkers {
		i, c := i, c // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			results[i] = e.runCheck(ctx, c)
			return nil
		})
	}
	g.Wait()

	return results
}

// Run evaluates all checkers and folds the results into a snapshot.
func (e *Executor) Run(ctx context.Context) state.Snapshot {
	return state.FromResults(e.RunChecks(ctx), time.Now())
}

func (e *Executor) runCheck(ctx context.Context, c checker.Checker) checker.Result {
	start := time.Now()

	if b, ok := c.(checker.Bounded); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout()+abandonGrace)
		defer cancel()
	}

	resultCh := make(chan checker.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("check panicked", "check", c.Name(), "panic", r)
				resultCh <- checker.Result{
					Check:        c.Name(),
					Status:       checker.StatusDown,
					Reason:       checker.ReasonTransportError,
					Error:        fmt.Sprintf("check panicked: %v", r),
					ResponseTime: time.Since(start),
					CheckedAt:    start,
				}
			}
		}()
		resultCh <- c.Check(ctx)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		e.logger.Warn("check abandoned", "check", c.Name(), "elapsed", time.Since(start))
		return checker.Result{
			Check:        c.Name(),
			Status:       checker.StatusDown,
			Reason:       checker.ReasonTimedOut,
			Error:        "check timed out",
			ResponseTime: time.Since(start),
			CheckedAt:    start,
		}
	}
}
