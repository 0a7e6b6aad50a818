package probe

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trustingValidator(certs ...*x509.Certificate) *TLSValidator {
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return &TLSValidator{Roots: pool, now: time.Now}
}

func tlsServerAddr(t *testing.T, srv *httptest.Server) (string, string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func TestTLSValidatorTrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := tlsServerAddr(t, srv)

	report := trustingValidator(srv.Certificate()).Validate(context.Background(), host, port)

	assert.True(t, report.Trusted)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Reason)
	assert.Equal(t, srv.Certificate().NotAfter.UTC(), report.ExpiresAt)
	assert.Greater(t, report.DaysRemaining, 365)
	assert.NotEqual(t, "Unknown", report.Issuer)
}

func TestTLSValidatorUntrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := tlsServerAddr(t, srv)

	report := trustingValidator().Validate(context.Background(), host, port)

	assert.False(t, report.Trusted)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Reason, "certificate not trusted")
	assert.False(t, report.ExpiresAt.IsZero(), "expiry is reported even when untrusted")
}

func TestTLSValidatorExpired(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cert := srv.Certificate()
	v := trustingValidator(cert)
	v.now = func() time.Time { return cert.NotAfter.Add(48 * time.Hour) }

	report := v.inspect("127.0.0.1", []*x509.Certificate{cert})

	assert.True(t, report.Trusted)
	assert.False(t, report.Valid)
	assert.Equal(t, -2, report.DaysRemaining)
	assert.Equal(t, "certificate expired on "+cert.NotAfter.UTC().Format("2006-01-02"), report.Reason)
}

func TestTLSValidatorHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host, port := tlsServerAddr(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report := NewTLSValidator().Validate(ctx, host, port)
	assert.False(t, report.Valid)
	assert.Equal(t, "Unknown", report.Issuer)
	assert.Contains(t, report.Reason, "handshake failed")
}

func TestDaysUntilFloors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysUntil(now, now.Add(23*time.Hour)))
	assert.Equal(t, 1, daysUntil(now, now.Add(25*time.Hour)))
	assert.Equal(t, -1, daysUntil(now, now.Add(-time.Hour)))
}

func TestIssuerLabel(t *testing.T) {
	cert := func(org, cn string) *x509.Certificate {
		name := pkix.Name{CommonName: cn}
		if org != "" {
			name.Organization = []string{org}
		}
		return &x509.Certificate{Issuer: name}
	}

	assert.Equal(t, "Let's Encrypt (R3)", issuerLabel(cert("Let's Encrypt", "R3")))
	assert.Equal(t, "Acme Co", issuerLabel(cert("Acme Co", "")))
	assert.Equal(t, "R3", issuerLabel(cert("", "R3")))
	assert.Equal(t, "Unknown", issuerLabel(cert("", "")))
}
