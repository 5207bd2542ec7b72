// Package state holds the process-wide health snapshot shared between the
// check scheduler (single writer) and request handlers (many readers).
package state

import (
	"sync/atomic"
	"time"

	"github.com/hazz-dev/easycheck/internal/checker"
)

// Status is the aggregated availability of the host.
type Status string

const (
	Available   Status = "available"
	Unavailable Status = "unavailable"
)

// Failure is one failing check and why it failed.
type Failure struct {
	Check  string         `json:"check_name"`
	Reason string         `json:"failure_reason"`
	Kind   checker.Reason `json:"-"`
}

// Snapshot is an immutable view of the latest check cycle. Failures is
// empty when Status is Available; callers must not modify it.
type Snapshot struct {
	Status      Status
	EvaluatedAt time.Time
	Failures    []Failure
}

// Available reports whether the snapshot status is Available.
func (s Snapshot) Available() bool {
	return s.Status == Available
}

// Age returns how long ago the snapshot was evaluated, in whole seconds.
func (s Snapshot) Age(now time.Time) time.Duration {
	age := now.Sub(s.EvaluatedAt)
	if age < 0 {
		return 0
	}
	return age.Truncate(time.Second)
}

// FromResults folds per-check results into a snapshot. The status is
// Available iff every result succeeded; no results means Available.
func FromResults(results []checker.Result, at time.Time) Snapshot {
	snap := Snapshot{Status: Available, EvaluatedAt: at}
	for _, r := range results {
		if r.OK() {
			continue
		}
		snap.Status = Unavailable
		snap.Failures = append(snap.Failures, Failure{
			Check:  r.Check,
			Reason: r.Error,
			Kind:   r.Reason,
		})
	}
	return snap
}

// Initial is the snapshot served before the first cycle completes.
func Initial(at time.Time) Snapshot {
	return Snapshot{
		Status:      Unavailable,
		EvaluatedAt: at,
		Failures: []Failure{{
			Check:  "initial check",
			Reason: "cannot determine status: checks weren't executed yet",
		}},
	}
}

// Holder publishes snapshots atomically. Read never blocks on Publish and
// never observes a partially written snapshot.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// New returns a Holder initialised to the Initial snapshot.
func New() *Holder {
	h := &Holder{}
	snap := Initial(time.Now())
	h.current.Store(&snap)
	return h
}

// Publish replaces the current snapshot. Only the scheduler calls it.
func (h *Holder) Publish(s Snapshot) {
	if len(s.Failures) > 0 {
		s.Failures = append([]Failure(nil), s.Failures...)
	} else {
		s.Failures = nil
	}
	h.current.Store(&s)
}

// Read returns the most recently published snapshot.
func (h *Holder) Read() Snapshot {
	return *h.current.Load()
}
