package config_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/hazz-dev/easycheck/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.yml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return f.Name()
}

// parseFlags registers the flag set and parses args into it.
func parseFlags(t *testing.T, args ...string) *config.Flags {
	t.Helper()
	fs := pflag.NewFlagSet("easycheck", pflag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return flags
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTemp(t, `
bind: "0.0.0.0:8080"
revalidation_interval: "10s"
force_success_file_path: "/run/easycheck/success"
mtc_file_path: "/run/easycheck/disabled"
socket_check:
  address: "127.0.0.1:25"
  payload: 'QUIT\r\n'
  read_initial_response: true
  timeout: "2s"
http_check:
  url: "http://127.0.0.1:80/health"
  method: "HEAD"
  status_codes: [200, 204]
  proxy_protocol: "v2"
metrics:
  bind: "127.0.0.1:9090"
alerts:
  webhook_url: "https://hooks.example.com/alert"
  cooldown: "5m"
log:
  level: "debug"
  format: "json"
`)
	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Bind != "0.0.0.0:8080" {
		t.Errorf("expected bind 0.0.0.0:8080, got %q", cfg.Bind)
	}
	if cfg.RevalidationInterval.Duration != 10*time.Second {
		t.Errorf("expected interval 10s, got %v", cfg.RevalidationInterval.Duration)
	}
	if cfg.MaintenanceFile != "/run/easycheck/disabled" {
		t.Errorf("unexpected maintenance file %q", cfg.MaintenanceFile)
	}
	if !cfg.Socket.ReadInitialResponse || cfg.Socket.Timeout.Duration != 2*time.Second {
		t.Errorf("unexpected socket config %+v", cfg.Socket)
	}
	if string(cfg.Socket.PayloadBytes()) != "QUIT\r\n" {
		t.Errorf("expected decoded payload, got %q", cfg.Socket.PayloadBytes())
	}
	if cfg.HTTP.Method != "HEAD" || len(cfg.HTTP.StatusCodes) != 2 || cfg.HTTP.ProxyProtocol != "v2" {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.HTTP.Timeout.Duration != config.DefaultCheckTimeout {
		t.Errorf("expected default http timeout, got %v", cfg.HTTP.Timeout.Duration)
	}
	if cfg.Alerts.Cooldown.Duration != 5*time.Minute {
		t.Errorf("expected cooldown 5m, got %v", cfg.Alerts.Cooldown.Duration)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Log.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EASYCHECK_BIND_HOST", "127.0.0.1:8080")

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RevalidationInterval.Duration != config.DefaultRevalidationInterval {
		t.Errorf("expected default interval, got %v", cfg.RevalidationInterval.Duration)
	}
	if cfg.ForceSuccessFile != "easycheck.success" {
		t.Errorf("expected default force-success file, got %q", cfg.ForceSuccessFile)
	}
	if cfg.MaintenanceFile != "easycheck.disabled" {
		t.Errorf("expected default maintenance file, got %q", cfg.MaintenanceFile)
	}
	if string(cfg.Socket.PayloadBytes()) != "QUIT\n" {
		t.Errorf("expected default payload QUIT\\n, got %q", cfg.Socket.PayloadBytes())
	}
	if cfg.HTTP.Method != "GET" {
		t.Errorf("expected default method GET, got %q", cfg.HTTP.Method)
	}
	if len(cfg.HTTP.StatusCodes) != 0 {
		t.Errorf("expected no status codes by default, got %v", cfg.HTTP.StatusCodes)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("EASYCHECK_BIND_HOST", "[::1]:8080")
	t.Setenv("EASYCHECK_REVALIDATE_INTERVAL", "7")
	t.Setenv("EASYCHECK_SOCKET_ADDR", "127.0.0.1:6379")
	t.Setenv("EASYCHECK_HTTP_URL", "https://127.0.0.1/health")
	t.Setenv("EASYCHECK_HTTP_METHOD", "POST")
	t.Setenv("EASYCHECK_HTTP_STATUS_CODES", "200,301")
	t.Setenv("EASYCHECK_MTC_FILE_PATH", "/tmp/mtc")

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Bind != "[::1]:8080" {
		t.Errorf("unexpected bind %q", cfg.Bind)
	}
	if cfg.RevalidationInterval.Duration != 7*time.Second {
		t.Errorf("expected bare integer to mean seconds, got %v", cfg.RevalidationInterval.Duration)
	}
	if cfg.Socket.Address != "127.0.0.1:6379" {
		t.Errorf("unexpected socket address %q", cfg.Socket.Address)
	}
	if cfg.HTTP.Method != "POST" {
		t.Errorf("unexpected method %q", cfg.HTTP.Method)
	}
	if len(cfg.HTTP.StatusCodes) != 2 || cfg.HTTP.StatusCodes[1] != 301 {
		t.Errorf("unexpected status codes %v", cfg.HTTP.StatusCodes)
	}
	if cfg.MaintenanceFile != "/tmp/mtc" {
		t.Errorf("unexpected maintenance file %q", cfg.MaintenanceFile)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTemp(t, `
bind: "127.0.0.1:1000"
revalidation_interval: "30s"
http_check:
  method: "HEAD"
`)
	t.Setenv("EASYCHECK_BIND_HOST", "127.0.0.1:2000")
	t.Setenv("EASYCHECK_REVALIDATE_INTERVAL", "20s")

	flags := parseFlags(t, "--revalidation-interval", "3")

	cfg, err := config.Load(path, flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Bind != "127.0.0.1:2000" {
		t.Errorf("expected environment to override file, got %q", cfg.Bind)
	}
	if cfg.RevalidationInterval.Duration != 3*time.Second {
		t.Errorf("expected flag to override environment, got %v", cfg.RevalidationInterval.Duration)
	}
	if cfg.HTTP.Method != "HEAD" {
		t.Errorf("expected unset flag to keep file value, got %q", cfg.HTTP.Method)
	}
}

func TestLoad_Flags(t *testing.T) {
	flags := parseFlags(t,
		"--bind", "127.0.0.1:8080",
		"--socket-addr", "127.0.0.1:22",
		"--socket-read-initial-response",
		"--http-url", "http://127.0.0.1:8000/",
		"--http-status-codes", "200,204",
		"--log-format", "json",
	)

	cfg, err := config.Load("", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Socket.ReadInitialResponse {
		t.Error("expected read-initial-response to be set")
	}
	if len(cfg.HTTP.StatusCodes) != 2 {
		t.Errorf("unexpected status codes %v", cfg.HTTP.StatusCodes)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("unexpected log format %q", cfg.Log.Format)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{name: "missing bind", yaml: `revalidation_interval: "5s"`, field: "bind"},
		{name: "bad bind", yaml: `bind: "localhost"`, field: "bind"},
		{name: "zero interval", yaml: "bind: \"127.0.0.1:80\"\nrevalidation_interval: \"0\"", field: "revalidation_interval"},
		{name: "bad socket address", yaml: "bind: \"127.0.0.1:80\"\nsocket_check:\n  address: \"nope\"", field: "address"},
		{name: "non-http url", yaml: "bind: \"127.0.0.1:80\"\nhttp_check:\n  url: \"ftp://x\"", field: "url"},
		{name: "status code out of range", yaml: "bind: \"127.0.0.1:80\"\nhttp_check:\n  status_codes: [99]", field: "status_codes"},
		{name: "bad method", yaml: "bind: \"127.0.0.1:80\"\nhttp_check:\n  method: \"GE T\"", field: "method"},
		{name: "bad proxy protocol", yaml: "bind: \"127.0.0.1:80\"\nhttp_check:\n  proxy_protocol: \"v3\"", field: "proxy_protocol"},
		{name: "bad log level", yaml: "bind: \"127.0.0.1:80\"\nlog:\n  level: \"loud\"", field: "level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeTemp(t, tc.yaml), nil)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected error to mention %q, got %v", tc.field, err)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTemp(t, "bind: \"127.0.0.1:80\"\nrevalidation_interval: \"soon\"")
	if _, err := config.Load(path, nil); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yml", nil)
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5", 5 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"2m", 2 * time.Minute},
	}
	for _, tc := range tests {
		got, err := config.ParseDuration(tc.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}
