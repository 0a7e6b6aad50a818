package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/storage"
)

const (
	maxBodyBytes     = 1 << 20
	defaultUserAgent = "upwatch/1.0"
	timestampToken   = "{timestamp}"
)

// Response is what came back from the origin.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Outcome is the result of one HTTP exchange: a Response or an Error, never
// both.
type Outcome struct {
	Response *Response
	Err      *Error
	Elapsed  time.Duration
}

type Prober struct {
	log       *logger.Logger
	transport http.RoundTripper
	dns       *DNSValidator
	tls       *TLSValidator
	now       func() time.Time
}

func New(log *logger.Logger) *Prober {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Prober{
		log:       log.Named("probe"),
		transport: transport,
		dns:       NewDNSValidator(),
		tls:       NewTLSValidator(),
		now:       time.Now,
	}
}

// WithValidators replaces the DNS and TLS validators. Nil leaves one unchanged.
func (p *Prober) WithValidators(dns *DNSValidator, tlsv *TLSValidator) *Prober {
	if dns != nil {
		p.dns = dns
	}
	if tlsv != nil {
		p.tls = tlsv
	}
	return p
}

// Do performs a single HTTP exchange bounded by the plan timeout. It never
// retries.
func (p *Prober) Do(ctx context.Context, plan *Plan) Outcome {
	ctx, cancel := context.WithTimeout(ctx, plan.Timeout)
	defer cancel()

	var body io.Reader
	payload := ""
	if plan.BodyTemplate != "" {
		payload = strings.ReplaceAll(plan.BodyTemplate, timestampToken, strconv.FormatInt(p.now().Unix(), 10))
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, plan.Method, plan.URL, body)
	if err != nil {
		return Outcome{Err: invalidRequest(err)}
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	if payload != "" {
		if json.Valid([]byte(payload)) {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		}
	}
	for k, v := range plan.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{
		Transport:     p.transport,
		Timeout:       plan.Timeout,
		CheckRedirect: redirectPolicy(plan.FollowRedirects),
	}
	if plan.AcceptCookies {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return Outcome{Err: invalidRequest(err)}
		}
		client.Jar = jar
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Outcome{Err: classifyTransportError(err, plan.Timeout), Elapsed: time.Since(start)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{Err: classifyTransportError(err, plan.Timeout), Elapsed: elapsed}
	}

	return Outcome{
		Response: &Response{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		},
		Elapsed: elapsed,
	}
}

func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !follow || len(via) >= config.MaxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// Check runs the full probe pipeline for one tick: HTTP exchange, then the
// optional DNS and TLS validations, then classification.
func (p *Prober) Check(ctx context.Context, plan *Plan) storage.CheckResult {
	outcome := p.Do(ctx, plan)

	result := storage.CheckResult{
		TargetID:     plan.TargetID,
		ResponseTime: outcome.Elapsed.Milliseconds(),
	}
	if outcome.Response != nil {
		result.StatusCode = outcome.Response.StatusCode
	}

	overlays := []Overlay{SlowResponse(outcome.Elapsed, plan.Timeout)}

	if plan.CheckDNS {
		dctx, cancel := context.WithTimeout(ctx, plan.Timeout)
		report := p.dns.Validate(dctx, plan.Host)
		cancel()

		result.DNSValid = &report.Valid
		result.DNSError = report.Reason
		overlays = append(overlays, DNSOverlay(report))
	}

	if plan.CheckTLS && plan.Scheme == "https" {
		tctx, cancel := context.WithTimeout(ctx, plan.Timeout)
		report := p.tls.Validate(tctx, plan.Host, plan.Port)
		cancel()

		result.TLSValid = &report.Valid
		result.TLSIssuer = report.Issuer
		if !report.ExpiresAt.IsZero() {
			expires := report.ExpiresAt
			days := report.DaysRemaining
			result.TLSExpiresAt = &expires
			result.TLSDaysRemaining = &days
		}
		overlays = append(overlays, TLSOverlay(report, plan.TLSExpiryThreshold))
	}

	verdict := Apply(Classify(plan.Policy, outcome), overlays...)
	result.Status = verdict.Status
	result.Error = verdict.Message()
	result.CreatedAt = p.now().UTC()

	if verdict.Status != storage.StatusOperational {
		kv := []interface{}{"target", plan.Name, "status", verdict.Status, "reason", result.Error}
		if outcome.Response != nil {
			kv = append(kv, "body", bodyPreview(outcome.Response.Body))
		}
		p.log.Debug("check not operational", kv...)
	}
	return result
}

// bodyPreview is used when logging unexpected responses.
func bodyPreview(b []byte) string {
	const limit = 200
	b = bytes.TrimSpace(b)
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
