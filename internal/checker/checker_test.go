package checker_test

import (
	"testing"
	"time"

	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/config"
)

type ftpSpec struct{}

func (ftpSpec) Kind() string { return "ftp" }

func TestNew_UnknownKind(t *testing.T) {
	_, err := checker.New(ftpSpec{})
	if err == nil {
		t.Fatal("expected error for unknown checker kind, got nil")
	}
}

func TestStatusConstants(t *testing.T) {
	if checker.StatusUp != "up" {
		t.Errorf("StatusUp should be 'up', got %q", checker.StatusUp)
	}
	if checker.StatusDown != "down" {
		t.Errorf("StatusDown should be 'down', got %q", checker.StatusDown)
	}
}

func TestSpecsFromConfig_NoChecks(t *testing.T) {
	cfg := config.Default()
	if specs := checker.SpecsFromConfig(&cfg); len(specs) != 0 {
		t.Errorf("expected no specs, got %d", len(specs))
	}
}

func TestSpecsFromConfig_HTTPBeforeTCP(t *testing.T) {
	cfg := config.Default()
	cfg.Socket.Address = "127.0.0.1:6379"
	cfg.Socket.Payload = `PING\r\n`
	cfg.HTTP.URL = "http://127.0.0.1:8080/health"
	cfg.HTTP.StatusCodes = []int{200, 204}
	cfg.HTTP.Timeout = config.Duration{Duration: 2 * time.Second}

	specs := checker.SpecsFromConfig(&cfg)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}

	h, ok := specs[0].(checker.HTTPSpec)
	if !ok {
		t.Fatalf("expected HTTPSpec first, got %T", specs[0])
	}
	if h.Timeout != 2*time.Second || len(h.AcceptedStatus) != 2 {
		t.Errorf("unexpected http spec %+v", h)
	}

	s, ok := specs[1].(checker.TCPSpec)
	if !ok {
		t.Fatalf("expected TCPSpec second, got %T", specs[1])
	}
	if string(s.Payload) != "PING\r\n" {
		t.Errorf("expected decoded payload, got %q", s.Payload)
	}
}

func TestFromConfig_Names(t *testing.T) {
	cfg := config.Default()
	cfg.Socket.Address = "127.0.0.1:6379"
	cfg.HTTP.URL = "http://127.0.0.1:8080/"

	checkers, err := checker.FromConfig(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"http endpoint check http://127.0.0.1:8080/",
		"network connection check 127.0.0.1:6379",
	}
	for i, c := range checkers {
		if c.Name() != want[i] {
			t.Errorf("checker %d: expected name %q, got %q", i, want[i], c.Name())
		}
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	c, err := checker.New(checker.TCPSpec{Address: "127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := c.(checker.Bounded)
	if !ok {
		t.Fatal("expected tcp checker to report its timeout")
	}
	if b.Timeout() != checker.DefaultTimeout {
		t.Errorf("expected default timeout, got %s", b.Timeout())
	}
}
