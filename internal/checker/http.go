package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pires/go-proxyproto"
)

// HTTPSpec configures an HTTP reachability check.
type HTTPSpec struct {
	URL    string
	Method string
	// AcceptedStatus lists the response codes counted as success.
	// Empty means any 2xx.
	AcceptedStatus []int
	Timeout        time.Duration
	// ProxyProtocol is "", "v1" or "v2".
	ProxyProtocol string
}

func (HTTPSpec) Kind() string { return "http" }

type httpChecker struct {
	spec     HTTPSpec
	method   string
	accepted map[int]struct{}
	timeout  time.Duration
	client   *http.Client
}

func newHTTPChecker(spec HTTPSpec) (*httpChecker, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", spec.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url %q must use http or https", spec.URL)
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	accepted := make(map[int]struct{}, len(spec.AcceptedStatus))
	for _, code := range spec.AcceptedStatus {
		accepted[code] = struct{}{}
	}

	timeout := timeoutOrDefault(spec.Timeout)
	dialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: timeout,
	}
	if spec.ProxyProtocol != "" {
		version, err := proxyVersion(spec.ProxyProtocol)
		if err != nil {
			return nil, err
		}
		transport.DialContext = proxyDialer(dialer, version)
	}

	return &httpChecker{
		spec:     spec,
		method:   method,
		accepted: accepted,
		timeout:  timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// Judge the configured URL itself, never a redirect target.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (c *httpChecker) Name() string {
	return "http endpoint check " + c.spec.URL
}

func (c *httpChecker) Timeout() time.Duration {
	return c.timeout
}

func (c *httpChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := Result{
		Check:     c.Name(),
		CheckedAt: start,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.method, c.spec.URL, nil)
	if err != nil {
		result.fail(ReasonTransportError, fmt.Sprintf("creating request: %v", err))
		result.ResponseTime = time.Since(start)
		return result
	}

	resp, err := c.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		reason := classifyHTTPError(err)
		result.fail(reason, err.Error())
		return result
	}
	_, drainErr := io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if drainErr != nil {
		result.fail(classifyHTTPError(drainErr), fmt.Sprintf("reading response body: %v", drainErr))
		return result
	}
	if !c.acceptable(resp.StatusCode) {
		result.fail(ReasonUnexpectedStatus, fmt.Sprintf("received status %d", resp.StatusCode))
		return result
	}

	result.Status = StatusUp
	return result
}

func (c *httpChecker) acceptable(code int) bool {
	if len(c.accepted) == 0 {
		return code >= 200 && code < 300
	}
	_, ok := c.accepted[code]
	return ok
}

func classifyHTTPError(err error) Reason {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ReasonTimedOut
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ReasonConnectionFailed
	}
	return ReasonTransportError
}

func proxyVersion(v string) (byte, error) {
	switch v {
	case "v1":
		return 1, nil
	case "v2":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown proxy protocol version %q", v)
	}
}

// proxyDialer writes a PROXY protocol header on every new connection before
// the HTTP exchange starts. Source and destination are fixed to 127.0.0.1:80.
func proxyDialer(dialer *net.Dialer, version byte) func(ctx context.Context, network, addr string) (net.Conn, error) {
	local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		header := &proxyproto.Header{
			Version:           version,
			Command:           proxyproto.PROXY,
			TransportProtocol: proxyproto.TCPv4,
			SourceAddr:        local,
			DestinationAddr:   local,
		}
		if _, err := header.WriteTo(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("writing proxy protocol header: %w", err)
		}
		return conn, nil
	}
}
