package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var methodToken = regexp.MustCompile("^[!#$%&'*+.^_`|~0-9A-Za-z-]+$")

func init() {
	// Report fields by their YAML keys.
	validation.ErrorTag = "yaml"
}

// Validate checks the whole configuration. The returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Bind, validation.Required, validation.By(validateHostPort)),
		validation.Field(&c.RevalidationInterval, validation.By(positiveDuration)),
		validation.Field(&c.ForceSuccessFile, validation.Required),
		validation.Field(&c.MaintenanceFile, validation.Required),
		validation.Field(&c.Socket),
		validation.Field(&c.HTTP),
		validation.Field(&c.Metrics),
		validation.Field(&c.Alerts),
		validation.Field(&c.Log),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (s SocketCheck) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.By(validateHostPort)),
		validation.Field(&s.Timeout, validation.By(positiveDuration)),
	)
}

func (h HTTPCheck) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.URL, validation.By(validateHTTPURL)),
		validation.Field(&h.Method, validation.Required, validation.Match(methodToken)),
		validation.Field(&h.StatusCodes, validation.Each(validation.By(validateStatusCode))),
		validation.Field(&h.Timeout, validation.By(positiveDuration)),
		validation.Field(&h.ProxyProtocol, validation.In("v1", "v2")),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Bind, validation.By(validateHostPort)),
	)
}

func (a AlertsConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.WebhookURL, validation.By(validateHTTPURL)),
		validation.Field(&a.Cooldown, validation.By(nonNegativeDuration)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.Required, validation.In("text", "json")),
	)
}

// validateHostPort accepts ip:port, [ipv6]:port and host:port. Empty values
// pass; use validation.Required where the field is mandatory.
func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if addr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return validation.NewError("validation_invalid_port", "port must be a number between 0 and 65535")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateHTTPURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if raw == "" {
		return nil
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}

func validateStatusCode(value interface{}) error {
	code, ok := value.(int)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an integer")
	}
	if code < 100 || code > 599 {
		return validation.NewError("validation_invalid_status_code", "must be between 100 and 599")
	}
	return nil
}

func positiveDuration(value interface{}) error {
	d, ok := value.(Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}
	if d.Duration <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be a positive duration")
	}
	return nil
}

func nonNegativeDuration(value interface{}) error {
	d, ok := value.(Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}
	if d.Duration < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}
	return nil
}
