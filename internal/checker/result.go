package checker

import "time"

// Status represents the outcome of a single check.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Reason classifies why a check failed.
type Reason string

const (
	ReasonNone                        Reason = ""
	ReasonConnectionFailed            Reason = "connection_failed"
	ReasonConnectionRefused           Reason = "connection_refused"
	ReasonTimedOut                    Reason = "timed_out"
	ReasonUnexpectedStatus            Reason = "unexpected_status"
	ReasonTransportError              Reason = "transport_error"
	ReasonConnectionClosedWithoutData Reason = "connection_closed_without_data"
)

// Result is the outcome of a single health check.
type Result struct {
	Check        string
	Status       Status
	Reason       Reason
	StatusCode   int
	Error        string
	ResponseTime time.Duration
	CheckedAt    time.Time
}

// OK reports whether the check succeeded.
func (r Result) OK() bool {
	return r.Status == StatusUp
}

func (r *Result) fail(reason Reason, msg string) {
	r.Status = StatusDown
	r.Reason = reason
	r.Error = msg
}
