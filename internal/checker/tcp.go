package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultPayload is sent to the socket when TCPSpec.Payload is nil.
const DefaultPayload = "QUIT\n"

// TCPSpec configures a TCP reachability check.
type TCPSpec struct {
	Address string
	Payload []byte
	// ReadBanner reads and discards a server greeting before the payload
	// is written (SMTP, FTP and similar protocols).
	ReadBanner bool
	Timeout    time.Duration
}

func (TCPSpec) Kind() string { return "tcp" }

type tcpChecker struct {
	spec    TCPSpec
	payload []byte
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

func newTCPChecker(spec TCPSpec) *tcpChecker {
	payload := spec.Payload
	if payload == nil {
		payload = []byte(DefaultPayload)
	}
	timeout := timeoutOrDefault(spec.Timeout)
	dialer := &net.Dialer{Timeout: timeout}
	return &tcpChecker{
		spec:    spec,
		payload: payload,
		timeout: timeout,
		dial:    dialer.DialContext,
	}
}

func (c *tcpChecker) Name() string {
	return "network connection check " + c.spec.Address
}

func (c *tcpChecker) Timeout() time.Duration {
	return c.timeout
}

func (c *tcpChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := Result{
		Check:     c.Name(),
		CheckedAt: start,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", c.spec.Address)
	if err != nil {
		if isTimeout(err) {
			result.fail(ReasonTimedOut, fmt.Sprintf("timeout connecting to %s", c.spec.Address))
		} else {
			result.fail(ReasonConnectionRefused, fmt.Sprintf("error connecting to %s: %v", c.spec.Address, err))
		}
		return finish(result, start)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			result.fail(ReasonTransportError, fmt.Sprintf("setting deadline on %s: %v", c.spec.Address, err))
			return finish(result, start)
		}
	}

	buf := make([]byte, 1024)
	received := 0

	if c.spec.ReadBanner {
		n, err := conn.Read(buf)
		received += n
		if err != nil && n == 0 {
			c.failRead(&result, err)
			return finish(result, start)
		}
	}

	if len(c.payload) > 0 {
		if _, err := conn.Write(c.payload); err != nil {
			if isTimeout(err) {
				result.fail(ReasonTimedOut, fmt.Sprintf("timeout sending payload to %s", c.spec.Address))
			} else {
				result.fail(ReasonConnectionClosedWithoutData, fmt.Sprintf("error sending payload to %s: %v", c.spec.Address, err))
			}
			return finish(result, start)
		}
	}

	n, err := conn.Read(buf)
	received += n
	if received == 0 {
		c.failRead(&result, err)
		return finish(result, start)
	}

	result.Status = StatusUp
	return finish(result, start)
}

func (c *tcpChecker) failRead(result *Result, err error) {
	if isTimeout(err) {
		result.fail(ReasonTimedOut, fmt.Sprintf("timeout waiting for response from %s", c.spec.Address))
		return
	}
	msg := fmt.Sprintf("connection to %s closed without data", c.spec.Address)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	result.fail(ReasonConnectionClosedWithoutData, msg)
}

func finish(r Result, start time.Time) Result {
	r.ResponseTime = time.Since(start)
	return r
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
