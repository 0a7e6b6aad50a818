package probe

import (
	"bytes"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ankityadav/upwatch/internal/storage"
)

// Verdict is a classification in progress: a status plus the messages that
// explain it, joined with "; " when rendered.
type Verdict struct {
	Status   storage.Status
	Messages []string
}

func (v Verdict) Message() string {
	return strings.Join(v.Messages, "; ")
}

func (v Verdict) with(status storage.Status, msg string) Verdict {
	messages := make([]string, 0, len(v.Messages)+1)
	messages = append(messages, v.Messages...)
	if msg != "" {
		messages = append(messages, msg)
	}
	return Verdict{Status: status, Messages: messages}
}

// Overlay may only keep or worsen a verdict.
type Overlay func(Verdict) Verdict

// Apply folds the overlays over the base verdict in order.
func Apply(base Verdict, overlays ...Overlay) Verdict {
	v := base
	for _, overlay := range overlays {
		v = overlay(v)
	}
	return v
}

// Classify computes the base verdict for an outcome under the alert policy.
// Any outcome without a response is down regardless of policy.
func Classify(policy Policy, outcome Outcome) Verdict {
	if outcome.Err != nil || outcome.Response == nil {
		msg := "No response received"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		return Verdict{}.with(storage.StatusDown, msg)
	}

	resp := outcome.Response
	up := Verdict{Status: storage.StatusOperational}

	switch policy.Type {
	case storage.AlertContainsKeyword:
		if containsKeyword(resp, policy.Keyword) {
			return Verdict{}.with(storage.StatusDown, fmt.Sprintf("Keyword %q found in response", policy.Keyword))
		}
		return up

	case storage.AlertNotContainsKeyword:
		if !containsKeyword(resp, policy.Keyword) {
			return Verdict{}.with(storage.StatusDown, fmt.Sprintf("Keyword %q not found in response", policy.Keyword))
		}
		return up

	case storage.AlertHTTPStatusOtherThan:
		allowed := policy.AllowedCodes
		if len(allowed) == 0 {
			allowed = []int{200}
		}
		for _, code := range allowed {
			if resp.StatusCode == code {
				return up
			}
		}
		return Verdict{}.with(storage.StatusDown, fmt.Sprintf("HTTP %d (expected %s)", resp.StatusCode, joinCodes(allowed)))

	default:
		if resp.StatusCode >= 500 {
			return Verdict{}.with(storage.StatusDown, fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		return up
	}
}

// SlowResponse degrades an operational verdict whose response took longer
// than 80% of the timeout.
func SlowResponse(elapsed, timeout time.Duration) Overlay {
	return func(v Verdict) Verdict {
		if v.Status != storage.StatusOperational || timeout <= 0 {
			return v
		}
		if elapsed*5 > timeout*4 {
			return v.with(storage.StatusDegraded, fmt.Sprintf("Slow response: %dms (timeout %s)", elapsed.Milliseconds(), timeout))
		}
		return v
	}
}

// DNSOverlay forces down when the hostname did not resolve.
func DNSOverlay(report DNSReport) Overlay {
	return func(v Verdict) Verdict {
		if report.Valid {
			return v
		}
		return v.with(storage.StatusDown, "Domain verification failed: "+report.Reason)
	}
}

// TLSOverlay forces down on an untrusted or expired certificate and degrades
// an operational verdict when expiry is within thresholdDays. It never lifts
// a down verdict.
func TLSOverlay(report TLSReport, thresholdDays int) Overlay {
	return func(v Verdict) Verdict {
		if !report.Valid {
			return v.with(storage.StatusDown, "SSL: "+report.Reason)
		}
		if report.DaysRemaining > thresholdDays {
			return v
		}
		status := v.Status
		if status == storage.StatusOperational {
			status = storage.StatusDegraded
		}
		return v.with(status, fmt.Sprintf("SSL certificate expires in %d days", report.DaysRemaining))
	}
}

// containsKeyword treats a non-text body as a non-match.
func containsKeyword(resp *Response, keyword string) bool {
	if keyword == "" || !isText(resp.ContentType, resp.Body) {
		return false
	}
	return bytes.Contains(resp.Body, []byte(keyword))
}

func isText(contentType string, body []byte) bool {
	if contentType == "" {
		return utf8.Valid(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return utf8.Valid(body)
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"),
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"),
		strings.Contains(mediaType, "javascript"):
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/x-www-form-urlencoded", "application/x-ndjson":
		return true
	}
	return false
}

func joinCodes(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ", ")
}
