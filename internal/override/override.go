// Package override resolves the served verdict from the latest health
// snapshot and the two operator marker files.
package override

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/hazz-dev/easycheck/internal/state"
)

// DefaultLookupTimeout bounds a single marker lookup.
const DefaultLookupTimeout = 250 * time.Millisecond

// Source names what decided a verdict.
type Source string

const (
	SourceMaintenance  Source = "maintenance"
	SourceForceSuccess Source = "force_success"
	SourceChecks       Source = "checks"
)

// MaintenanceFailure is reported while the maintenance marker exists.
var MaintenanceFailure = state.Failure{
	Check:  "mtc file",
	Reason: "maintenance file exists",
}

// Reader returns the latest published snapshot.
type Reader interface {
	Read() state.Snapshot
}

// Verdict is the outcome served for one request.
type Verdict struct {
	Status   state.Status
	Source   Source
	Snapshot state.Snapshot
	Failures []state.Failure
}

// Available reports whether the verdict maps to a 200 response.
func (v Verdict) Available() bool {
	return v.Status == state.Available
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithLogger sets the logger used for marker lookup errors.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver combines markers and health state. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	maintenancePath  string
	forceSuccessPath string
	reader           Reader
	lookupTimeout     time.Duration
	logger           *slog.Logger
}

// New creates a Resolver. An empty path disables that marker.
func New(maintenancePath, forceSuccessPath string, reader Reader, opts ...Option) *Resolver {
	r := &Resolver{
		maintenancePath:  maintenancePath,
		forceSuccessPath: forceSuccessPath,
		reader:           reader,
		lookupTimeout:     DefaultLookupTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve checks the markers and returns the verdict. Maintenance wins over
// force-success, which wins over the check results.
func (r *Resolver) Resolve(ctx context.Context) Verdict {
	snap := r.reader.Read()

	if r.present(ctx, r.maintenancePath) {
		return Verdict{
			Status:   state.Unavailable,
			Source:   SourceMaintenance,
			Snapshot: snap,
			Failures: []state.Failure{MaintenanceFailure},
		}
	}
	if r.present(ctx, r.forceSuccessPath) {
		return Verdict{
			Status:   state.Available,
			Source:   SourceForceSuccess,
			Snapshot: snap,
		}
	}
	return Verdict{
		Status:   snap.Status,
		Source:   SourceChecks,
		Snapshot: snap,
		Failures: snap.Failures,
	}
}

// present reports whether path exists. Errors and slow filesystems count
// as absent.
func (r *Resolver) present(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := os.Stat(path)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("probing marker file", "path", path, "error", err)
		}
		return false
	case <-ctx.Done():
		r.logger.Warn("probing marker file", "path", path, "error", ctx.Err())
		return false
	}
}
