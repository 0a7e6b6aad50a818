package probe

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ankityadav/upwatch/internal/storage"
)

// Policy is the parsed alert rule of a target.
type Policy struct {
	Type         storage.AlertType
	Keyword      string
	AllowedCodes []int
}

// Plan is a target's check configuration, parsed and validated once when the
// target is scheduled and reused on every tick.
type Plan struct {
	TargetID        uint
	Name            string
	Method          string
	URL             string
	Scheme          string
	Host            string
	Port            string
	Headers         map[string]string
	BodyTemplate    string
	FollowRedirects bool
	AcceptCookies   bool
	Timeout         time.Duration
	Policy          Policy

	CheckTLS           bool
	TLSExpiryThreshold int
	CheckDNS           bool
}

// Compile validates the target and builds its Plan.
func Compile(t *storage.Target) (*Plan, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}

	headers, err := storage.ParseHeaders(t.Headers)
	if err != nil {
		return nil, err
	}

	policy := Policy{Type: t.Policy()}
	switch policy.Type {
	case storage.AlertContainsKeyword, storage.AlertNotContainsKeyword:
		policy.Keyword = t.AlertKeyword
	case storage.AlertHTTPStatusOtherThan:
		codes, err := storage.ParseStatusCodes(t.AlertStatusCodes)
		if err != nil {
			return nil, err
		}
		policy.AllowedCodes = codes
	}

	method := strings.ToUpper(t.Method)
	if method == "" {
		method = http.MethodGet
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	return &Plan{
		TargetID:           t.ID,
		Name:               t.Name,
		Method:             method,
		URL:                t.URL,
		Scheme:             u.Scheme,
		Host:               u.Hostname(),
		Port:               port,
		Headers:            headers,
		BodyTemplate:       t.Body,
		FollowRedirects:    t.FollowRedirects,
		AcceptCookies:      t.AcceptCookies,
		Timeout:            time.Duration(t.Timeout) * time.Second,
		Policy:             policy,
		CheckTLS:           t.CheckTLS,
		TLSExpiryThreshold: t.TLSExpiryThreshold,
		CheckDNS:           t.CheckDNS,
	}, nil
}
