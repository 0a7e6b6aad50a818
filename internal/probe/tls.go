package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math"
	"net"
	"time"
)

// TLSReport describes the certificate presented by an HTTPS origin.
type TLSReport struct {
	Trusted       bool
	Valid         bool
	ExpiresAt     time.Time
	DaysRemaining int
	Issuer        string
	Reason        string
}

// TLSValidator inspects peer certificates. Roots nil means the system pool.
type TLSValidator struct {
	Roots *x509.CertPool
	now   func() time.Time
}

func NewTLSValidator() *TLSValidator {
	return &TLSValidator{now: time.Now}
}

// Validate connects to host:port without verifying trust so that untrusted or
// expired certificates can still be inspected, then evaluates trust itself.
func (v *TLSValidator) Validate(ctx context.Context, host, port string) TLSReport {
	dialer := &tls.Dialer{
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return TLSReport{Issuer: "Unknown", Reason: fmt.Sprintf("handshake failed: %v", err)}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	return v.inspect(host, state.PeerCertificates)
}

func (v *TLSValidator) inspect(host string, certs []*x509.Certificate) TLSReport {
	if len(certs) == 0 {
		return TLSReport{Issuer: "Unknown", Reason: "no certificate presented"}
	}

	now := time.Now()
	if v.now != nil {
		now = v.now()
	}
	leaf := certs[0]
	report := TLSReport{
		ExpiresAt:     leaf.NotAfter.UTC(),
		DaysRemaining: daysUntil(now, leaf.NotAfter),
		Issuer:        issuerLabel(leaf),
	}

	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}

	// Trust is judged at a point inside the validity window so that expiry is
	// reported separately from chain problems.
	verifyAt := now
	if verifyAt.After(leaf.NotAfter) {
		verifyAt = leaf.NotAfter
	}
	if verifyAt.Before(leaf.NotBefore) {
		verifyAt = leaf.NotBefore
	}

	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         v.Roots,
		Intermediates: intermediates,
		DNSName:       host,
		CurrentTime:   verifyAt,
	})
	report.Trusted = err == nil

	expired := now.After(leaf.NotAfter)
	report.Valid = report.Trusted && !expired

	switch {
	case !report.Trusted:
		report.Reason = fmt.Sprintf("certificate not trusted: %v", err)
	case expired:
		report.Reason = fmt.Sprintf("certificate expired on %s", leaf.NotAfter.UTC().Format("2006-01-02"))
	}
	return report
}

func daysUntil(now, expiry time.Time) int {
	return int(math.Floor(expiry.Sub(now).Seconds() / 86400))
}

func issuerLabel(cert *x509.Certificate) string {
	org := ""
	if len(cert.Issuer.Organization) > 0 {
		org = cert.Issuer.Organization[0]
	}
	cn := cert.Issuer.CommonName

	switch {
	case org != "" && cn != "":
		return fmt.Sprintf("%s (%s)", org, cn)
	case org != "":
		return org
	case cn != "":
		return cn
	default:
		return "Unknown"
	}
}
