package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/hazz-dev/easycheck/internal/config"
)

// DefaultTimeout bounds a check when its spec does not set one.
const DefaultTimeout = 5 * time.Second

// Checker performs a single health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// Bounded is implemented by checkers that enforce their own timeout.
type Bounded interface {
	Timeout() time.Duration
}

// Spec describes one configured check. It is built once at startup and
// never mutated.
type Spec interface {
	Kind() string
}

// New returns the appropriate Checker for the given spec.
func New(spec Spec) (Checker, error) {
	switch s := spec.(type) {
	case HTTPSpec:
		return newHTTPChecker(s)
	case TCPSpec:
		return newTCPChecker(s), nil
	default:
		return nil, fmt.Errorf("unknown checker kind %q", spec.Kind())
	}
}

// SpecsFromConfig derives the check specs enabled by cfg, HTTP first.
func SpecsFromConfig(cfg *config.Config) []Spec {
	var specs []Spec
	if cfg.HTTP.URL != "" {
		specs = append(specs, HTTPSpec{
			URL:            cfg.HTTP.URL,
			Method:         cfg.HTTP.Method,
			AcceptedStatus: cfg.HTTP.StatusCodes,
			Timeout:        cfg.HTTP.Timeout.Duration,
			ProxyProtocol:  cfg.HTTP.ProxyProtocol,
		})
	}
	if cfg.Socket.Address != "" {
		specs = append(specs, TCPSpec{
			Address:    cfg.Socket.Address,
			Payload:    cfg.Socket.PayloadBytes(),
			ReadBanner: cfg.Socket.ReadInitialResponse,
			Timeout:    cfg.Socket.Timeout.Duration,
		})
	}
	return specs
}

// FromConfig builds every checker enabled by cfg.
func FromConfig(cfg *config.Config) ([]Checker, error) {
	specs := SpecsFromConfig(cfg)
	checkers := make([]Checker, 0, len(specs))
	for _, spec := range specs {
		c, err := New(spec)
		if err != nil {
			return nil, fmt.Errorf("creating %s checker: %w", spec.Kind(), err)
		}
		checkers = append(checkers, c)
	}
	return checkers, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
