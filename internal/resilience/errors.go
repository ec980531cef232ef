package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (network timeout,
// connection reset, SMTP 4xx greylisting).
type TransientError struct {
	Err error
	// SMTPCode holds the reply code when the error came from an SMTP
	// dialog, 0 otherwise.
	SMTPCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional SMTP reply code.
func NewTransientError(err error, smtpCode int) *TransientError {
	return &TransientError{Err: err, SMTPCode: smtpCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient network conditions:
// timeouts, connection resets, temporary DNS failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	// DNS: a temporary resolver failure is retryable; NXDOMAIN is not.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for errors wrapped by lower layers.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"i/o timeout",
		"connection refused",
		"server busy",
		"try again later",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientSMTPCode returns true if the SMTP reply code indicates a
// temporary condition (4xx: greylisting, mailbox busy, local error).
// Permanent rejections (5xx) are never retried.
func IsTransientSMTPCode(code int) bool {
	return code >= 400 && code < 500
}
