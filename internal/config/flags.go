package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user set explicitly
// take effect, so file and environment values survive unset flags.
type Flags struct {
	fs  *pflag.FlagSet
	cfg Config
}

// RegisterFlags defines every configuration flag on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: Default()}
	c := &f.cfg

	fs.StringVar(&c.Bind, "bind", c.Bind, "address of the health endpoint (ip:port or [ipv6]:port)")
	fs.Var(&c.RevalidationInterval, "revalidation-interval", "delay between two check cycles (seconds or duration)")
	fs.StringVar(&c.ForceSuccessFile, "force-success-file-path", c.ForceSuccessFile, "file whose presence forces a 200 response")
	fs.StringVar(&c.MaintenanceFile, "mtc-file-path", c.MaintenanceFile, "file whose presence forces a 503 response")

	fs.StringVar(&c.Socket.Address, "socket-addr", "", "TCP address to check (host:port)")
	fs.StringVar(&c.Socket.Payload, "socket-payload", c.Socket.Payload, "payload written to the TCP socket, Go escapes allowed")
	fs.BoolVar(&c.Socket.ReadInitialResponse, "socket-read-initial-response", false, "read the server greeting before writing the payload")
	fs.Var(&c.Socket.Timeout, "socket-timeout", "timeout of the TCP check")

	fs.StringVar(&c.HTTP.URL, "http-url", "", "URL to check over HTTP")
	fs.StringVar(&c.HTTP.Method, "http-method", c.HTTP.Method, "HTTP method of the check request")
	fs.IntSliceVar(&c.HTTP.StatusCodes, "http-status-codes", nil, "accepted response codes (default any 2xx)")
	fs.Var(&c.HTTP.Timeout, "http-timeout", "timeout of the HTTP check")
	fs.StringVar(&c.HTTP.ProxyProtocol, "http-proxy-protocol", "", "send a PROXY protocol header (v1 or v2)")

	fs.StringVar(&c.Metrics.Bind, "metrics-bind", "", "address of the Prometheus metrics listener (disabled if empty)")
	fs.StringVar(&c.Alerts.WebhookURL, "alert-webhook-url", "", "webhook notified when the status changes")
	fs.Var(&c.Alerts.Cooldown, "alert-cooldown", "minimum delay between two webhook notifications")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "log format (text, json)")

	return f
}

func (f *Flags) apply(dst *Config) {
	src := &f.cfg
	overrides := []struct {
		name string
		set  func()
	}{
		{"bind", func() { dst.Bind = src.Bind }},
		{"revalidation-interval", func() { dst.RevalidationInterval = src.RevalidationInterval }},
		{"force-success-file-path", func() { dst.ForceSuccessFile = src.ForceSuccessFile }},
		{"mtc-file-path", func() { dst.MaintenanceFile = src.MaintenanceFile }},
		{"socket-addr", func() { dst.Socket.Address = src.Socket.Address }},
		{"socket-payload", func() { dst.Socket.Payload = src.Socket.Payload }},
		{"socket-read-initial-response", func() { dst.Socket.ReadInitialResponse = src.Socket.ReadInitialResponse }},
		{"socket-timeout", func() { dst.Socket.Timeout = src.Socket.Timeout }},
		{"http-url", func() { dst.HTTP.URL = src.HTTP.URL }},
		{"http-method", func() { dst.HTTP.Method = src.HTTP.Method }},
		{"http-status-codes", func() { dst.HTTP.StatusCodes = src.HTTP.StatusCodes }},
		{"http-timeout", func() { dst.HTTP.Timeout = src.HTTP.Timeout }},
		{"http-proxy-protocol", func() { dst.HTTP.ProxyProtocol = src.HTTP.ProxyProtocol }},
		{"metrics-bind", func() { dst.Metrics.Bind = src.Metrics.Bind }},
		{"alert-webhook-url", func() { dst.Alerts.WebhookURL = src.Alerts.WebhookURL }},
		{"alert-cooldown", func() { dst.Alerts.Cooldown = src.Alerts.Cooldown }},
		{"log-level", func() { dst.Log.Level = src.Log.Level }},
		{"log-format", func() { dst.Log.Format = src.Log.Format }},
	}
	for _, o := range overrides {
		if f.fs.Changed(o.name) {
			o.set()
		}
	}
}
