package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Kind tags why a probe produced no response.
type Kind int

const (
	NetworkError Kind = iota + 1
	TLSError
	DNSError
)

func (k Kind) String() string {
	switch k {
	case NetworkError:
		return "network"
	case TLSError:
		return "tls"
	case DNSError:
		return "dns"
	default:
		return "unknown"
	}
}

// Error is the tagged failure carried inside an Outcome. It is a value, never
// returned across the probe boundary as a Go error.
type Error struct {
	Kind    Kind
	Timeout bool
	Err     error
	after   time.Duration
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("Request timed out after %s", e.after)
	case e.Kind == DNSError:
		return fmt.Sprintf("DNS lookup failed: %v", e.Err)
	case e.Kind == TLSError:
		return fmt.Sprintf("SSL handshake failed: %v", e.Err)
	default:
		return fmt.Sprintf("Connection failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidRequest(err error) *Error {
	return &Error{Kind: NetworkError, Err: fmt.Errorf("invalid request: %w", err)}
}

// classifyTransportError maps an http.Client error onto the failure taxonomy.
func classifyTransportError(err error, timeout time.Duration) *Error {
	inner := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: NetworkError, Timeout: true, Err: inner, after: timeout}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: DNSError, Err: inner}
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidErr) || strings.Contains(inner.Error(), "tls:") {
		return &Error{Kind: TLSError, Err: inner}
	}

	return &Error{Kind: NetworkError, Err: inner}
}
