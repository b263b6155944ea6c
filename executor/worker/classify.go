package worker

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

const (
	maxLabelLength  = 80
	labelCutoff     = 60
	labelKeepLength = 35
)

// classifyError maps a transport error to a short histogram label.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "connection reset"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return shorten("dns: " + dnsErr.Name)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return shorten(err.Error())
}

// shorten keeps labels readable in the status table: long messages are cut at their
// first parenthesis, or reduced to their head and tail.
func shorten(line string) string {
	if len(line) <= maxLabelLength {
		return line
	}
	if idx := strings.Index(line[:labelCutoff], "("); idx >= 0 {
		return line[:idx]
	}
	return line[:labelKeepLength] + "..." + line[len(line)-labelKeepLength:]
}

// shortenURL trims a URL for log lines.
func shortenURL(raw string) string {
	if len(raw) <= maxLabelLength {
		return raw
	}
	return raw[:labelKeepLength] + "..." + raw[len(raw)-labelKeepLength:]
}
