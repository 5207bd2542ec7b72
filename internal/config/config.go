package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "EASYCHECK_"

// Defaults.
const (
	DefaultRevalidationInterval = 5 * time.Second
	DefaultCheckTimeout         = 5 * time.Second
	DefaultForceSuccessFile     = "easycheck.success"
	DefaultMaintenanceFile      = "easycheck.disabled"
	DefaultSocketPayload        = `QUIT\n`
	DefaultAlertCooldown        = time.Minute
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInterval is returned when a non-positive revalidation
	// interval reaches the scheduler.
	ErrInvalidInterval = errors.New("revalidation interval must be positive")
)

// Duration is a time.Duration that unmarshals from "30s"-style strings or
// from a bare integer number of seconds.
type Duration struct {
	time.Duration
}

// ParseDuration accepts either a Go duration string or whole seconds.
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.Set(s)
}

// UnmarshalText is used by the environment parser.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

// Set implements pflag.Value.
func (d *Duration) Set(s string) error {
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Type implements pflag.Value.
func (d *Duration) Type() string {
	return "duration"
}

// SocketCheck configures the optional TCP check.
type SocketCheck struct {
	Address             string   `yaml:"address" env:"SOCKET_ADDR"`
	Payload             string   `yaml:"payload" env:"SOCKET_PAYLOAD"`
	ReadInitialResponse bool     `yaml:"read_initial_response" env:"SOCKET_READ_INITIAL_RESPONSE"`
	Timeout             Duration `yaml:"timeout" env:"SOCKET_TIMEOUT"`
}

// PayloadBytes decodes Go-style escapes (\n, \r, \x00) in the payload.
// Payloads that are not valid escape sequences are sent verbatim.
func (s SocketCheck) PayloadBytes() []byte {
	if decoded, err := strconv.Unquote(`"` + s.Payload + `"`); err == nil {
		return []byte(decoded)
	}
	return []byte(s.Payload)
}

// HTTPCheck configures the optional HTTP check.
type HTTPCheck struct {
	URL           string   `yaml:"url" env:"HTTP_URL"`
	Method        string   `yaml:"method" env:"HTTP_METHOD"`
	StatusCodes   []int    `yaml:"status_codes" env:"HTTP_STATUS_CODES" envSeparator:","`
	Timeout       Duration `yaml:"timeout" env:"HTTP_TIMEOUT"`
	ProxyProtocol string   `yaml:"proxy_protocol" env:"HTTP_PROXY_PROTOCOL"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Bind string `yaml:"bind" env:"METRICS_BIND"`
}

// AlertsConfig holds state-change webhook settings.
type AlertsConfig struct {
	WebhookURL string   `yaml:"webhook_url" env:"ALERT_WEBHOOK_URL"`
	Cooldown   Duration `yaml:"cooldown" env:"ALERT_COOLDOWN"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Config is the root application configuration.
type Config struct {
	Bind                 string        `yaml:"bind" env:"BIND_HOST"`
	RevalidationInterval Duration      `yaml:"revalidation_interval" env:"REVALIDATE_INTERVAL"`
	ForceSuccessFile     string        `yaml:"force_success_file_path" env:"FORCE_SUCCESS_FILE_PATH"`
	MaintenanceFile      string        `yaml:"mtc_file_path" env:"MTC_FILE_PATH"`
	Socket               SocketCheck   `yaml:"socket_check"`
	HTTP                 HTTPCheck     `yaml:"http_check"`
	Metrics              MetricsConfig `yaml:"metrics"`
	Alerts               AlertsConfig  `yaml:"alerts"`
	Log                  LogConfig     `yaml:"log"`
}

// Default returns a Config populated with built-in defaults. Bind has no
// default and must be supplied.
func Default() Config {
	return Config{
		RevalidationInterval: Duration{DefaultRevalidationInterval},
		ForceSuccessFile:     DefaultForceSuccessFile,
		MaintenanceFile:      DefaultMaintenanceFile,
		Socket: SocketCheck{
			Payload: DefaultSocketPayload,
			Timeout: Duration{DefaultCheckTimeout},
		},
		HTTP: HTTPCheck{
			Method:  "GET",
			Timeout: Duration{DefaultCheckTimeout},
		},
		Alerts: AlertsConfig{
			Cooldown: Duration{DefaultAlertCooldown},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, EASYCHECK_* environment variables and finally any flags the user set
// explicitly. The result is validated before it is returned.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if flags != nil {
		flags.apply(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
