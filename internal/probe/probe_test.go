package probe

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/storage"
)

func newTestProber() *Prober {
	return New(logger.NewNop())
}

func testPlan(rawURL string) *Plan {
	return &Plan{
		TargetID: 1,
		Name:     "test",
		Method:   http.MethodGet,
		URL:      rawURL,
		Scheme:   "http",
		Timeout:  2 * time.Second,
		Headers:  map[string]string{},
		Policy:   Policy{Type: storage.AlertUnavailable},
	}
}

func TestCheckServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := newTestProber().Check(context.Background(), testPlan(srv.URL))

	assert.Equal(t, storage.StatusDown, result.Status)
	assert.Equal(t, 503, result.StatusCode)
	assert.Equal(t, "HTTP 503", result.Error)
	assert.Equal(t, uint(1), result.TargetID)
	assert.False(t, result.CreatedAt.IsZero())
	assert.Nil(t, result.TLSValid)
	assert.Nil(t, result.DNSValid)
}

func TestCheckOperational(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	result := newTestProber().Check(context.Background(), testPlan(srv.URL))

	assert.Equal(t, storage.StatusOperational, result.Status)
	assert.Equal(t, 200, result.StatusCode)
	assert.Empty(t, result.Error)
	assert.GreaterOrEqual(t, result.ResponseTime, int64(0))
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	plan := testPlan(srv.URL)
	plan.Timeout = 200 * time.Millisecond

	start := time.Now()
	outcome := newTestProber().Do(context.Background(), plan)

	require.NotNil(t, outcome.Err)
	assert.Nil(t, outcome.Response)
	assert.True(t, outcome.Err.Timeout)
	assert.Equal(t, NetworkError, outcome.Err.Kind)
	assert.Contains(t, outcome.Err.Error(), "Request timed out after 200ms")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDoConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	outcome := newTestProber().Do(context.Background(), testPlan("http://"+addr))

	require.NotNil(t, outcome.Err)
	assert.Equal(t, NetworkError, outcome.Err.Kind)
	assert.False(t, outcome.Err.Timeout)
	assert.Contains(t, outcome.Err.Error(), "Connection failed")

	v := Classify(Policy{Type: storage.AlertHTTPStatusOtherThan}, outcome)
	assert.Equal(t, storage.StatusDown, v.Status)
}

func TestDoRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		http.Redirect(w, r, "/loop?n="+strconv.Itoa(n+1), http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProber()

	t.Run("not followed", func(t *testing.T) {
		outcome := p.Do(context.Background(), testPlan(srv.URL+"/start"))
		require.Nil(t, outcome.Err)
		assert.Equal(t, http.StatusFound, outcome.Response.StatusCode)
	})

	t.Run("followed", func(t *testing.T) {
		plan := testPlan(srv.URL + "/start")
		plan.FollowRedirects = true
		outcome := p.Do(context.Background(), plan)
		require.Nil(t, outcome.Err)
		assert.Equal(t, http.StatusOK, outcome.Response.StatusCode)
		assert.Equal(t, "landed", string(outcome.Response.Body))
	})

	t.Run("bounded at five hops", func(t *testing.T) {
		plan := testPlan(srv.URL + "/loop?n=0")
		plan.FollowRedirects = true
		outcome := p.Do(context.Background(), plan)
		require.Nil(t, outcome.Err)
		assert.Equal(t, http.StatusFound, outcome.Response.StatusCode)
	})
}

func TestDoRequestShape(t *testing.T) {
	type seen struct {
		method, userAgent, contentType, auth, body string
	}
	got := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- seen{
			method:      r.Method,
			userAgent:   r.Header.Get("User-Agent"),
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        string(b),
		}
	}))
	defer srv.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProber()
	p.now = func() time.Time { return now }

	plan := testPlan(srv.URL)
	plan.Method = http.MethodPost
	plan.BodyTemplate = `{"sent_at":{timestamp}}`
	plan.Headers = map[string]string{"Authorization": "Bearer abc"}

	outcome := p.Do(context.Background(), plan)
	require.Nil(t, outcome.Err)

	s := <-got
	assert.Equal(t, http.MethodPost, s.method)
	assert.Equal(t, defaultUserAgent, s.userAgent)
	assert.Equal(t, "application/json", s.contentType)
	assert.Equal(t, "Bearer abc", s.auth)

	var payload map[string]int64
	require.NoError(t, json.Unmarshal([]byte(s.body), &payload))
	assert.Equal(t, now.Unix(), payload["sent_at"])
}

func TestDoAcceptCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProber()

	plan := testPlan(srv.URL + "/login")
	plan.FollowRedirects = true
	outcome := p.Do(context.Background(), plan)
	require.Nil(t, outcome.Err)
	assert.Equal(t, http.StatusUnauthorized, outcome.Response.StatusCode)

	plan.AcceptCookies = true
	outcome = p.Do(context.Background(), plan)
	require.Nil(t, outcome.Err)
	assert.Equal(t, http.StatusOK, outcome.Response.StatusCode)
}

func TestCheckSkipsTLSForPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	plan := testPlan(srv.URL)
	plan.CheckTLS = true
	plan.TLSExpiryThreshold = 30

	result := newTestProber().Check(context.Background(), plan)
	assert.Equal(t, storage.StatusOperational, result.Status)
	assert.Nil(t, result.TLSValid)
}

func TestCheckDNSFailureForcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	plan := testPlan(srv.URL)
	plan.CheckDNS = true
	plan.Host = "status.example.invalid"

	p := newTestProber().WithValidators(&DNSValidator{Resolver: fakeResolver{}}, nil)
	result := p.Check(context.Background(), plan)

	assert.Equal(t, storage.StatusDown, result.Status)
	require.NotNil(t, result.DNSValid)
	assert.False(t, *result.DNSValid)
	assert.Contains(t, result.Error, "Domain verification failed")
}

func TestCheckTLSExpiringDegrades(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	plan, err := Compile(&storage.Target{
		ID:                 7,
		Name:               "secure",
		URL:                srv.URL,
		CheckInterval:      60,
		Timeout:            5,
		CheckTLS:           true,
		TLSExpiryThreshold: 30,
	})
	require.NoError(t, err)

	cert := srv.Certificate()
	tlsv := trustingValidator(cert)
	tlsv.now = func() time.Time { return cert.NotAfter.Add(-10*24*time.Hour - time.Hour) }

	result := newTestProber().WithValidators(nil, tlsv).Check(context.Background(), plan)

	assert.Equal(t, storage.StatusDegraded, result.Status)
	assert.Equal(t, "SSL certificate expires in 10 days", result.Error)
	require.NotNil(t, result.TLSValid)
	assert.True(t, *result.TLSValid)
	require.NotNil(t, result.TLSDaysRemaining)
	assert.Equal(t, 10, *result.TLSDaysRemaining)
}
