package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusOperational Status = "operational"
	StatusDegraded    Status = "degraded"
	StatusDown        Status = "down"
)

type AlertType string

const (
	AlertUnavailable         AlertType = "unavailable"
	AlertContainsKeyword     AlertType = "contains_keyword"
	AlertNotContainsKeyword  AlertType = "not_contains_keyword"
	AlertHTTPStatusOtherThan AlertType = "http_status_other_than"
)

type Recurrence string

const (
	RecurrenceNone   Recurrence = "none"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

var validate = validator.New()

type Target struct {
	ID                 uint          `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	Name               string        `gorm:"not null" json:"name" validate:"required,max=100"`
	URL                string        `gorm:"not null" json:"url" validate:"required,http_url"`
	Method             string        `gorm:"default:GET" json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Body               string        `json:"body,omitempty"`
	Headers            string        `json:"headers,omitempty"`
	FollowRedirects    bool          `json:"follow_redirects"`
	AcceptCookies      bool          `json:"accept_cookies"`
	Enabled            bool          `gorm:"default:true" json:"enabled"`
	CheckInterval      int           `gorm:"default:60" json:"check_interval" validate:"gte=30"`
	Timeout            int           `gorm:"default:10" json:"timeout" validate:"gt=0"`
	AlertType          AlertType     `gorm:"default:unavailable" json:"alert_type" validate:"omitempty,oneof=unavailable contains_keyword not_contains_keyword http_status_other_than"`
	AlertKeyword       string        `json:"alert_keyword,omitempty"`
	AlertStatusCodes   string        `json:"alert_status_codes,omitempty"`
	CheckTLS           bool          `json:"check_tls"`
	TLSExpiryThreshold int           `gorm:"default:30" json:"tls_expiry_threshold" validate:"gte=0"`
	CheckDNS           bool          `json:"check_dns"`
	CurrentStatus      Status        `gorm:"default:unknown" json:"current_status"`
	LastCheckAt        *time.Time    `json:"last_check_at"`
	LastStatusChangeAt *time.Time    `json:"last_status_change_at"`
	CheckResults       []CheckResult `gorm:"foreignKey:TargetID" json:"-" validate:"-"`
	Incidents          []Incident    `gorm:"foreignKey:TargetID" json:"-" validate:"-"`
}

// Policy returns the alert type, treating an empty value as unavailable.
func (t *Target) Policy() AlertType {
	if t.AlertType == "" {
		return AlertUnavailable
	}
	return t.AlertType
}

// Validate checks field constraints and that only the parameters belonging to
// the configured alert type are set.
func (t *Target) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}

	switch t.Policy() {
	case AlertContainsKeyword, AlertNotContainsKeyword:
		if t.AlertKeyword == "" {
			return fmt.Errorf("invalid target: alert type %s requires a keyword", t.Policy())
		}
		if t.AlertStatusCodes != "" {
			return fmt.Errorf("invalid target: status codes are only used by %s", AlertHTTPStatusOtherThan)
		}
	case AlertHTTPStatusOtherThan:
		if t.AlertKeyword != "" {
			return fmt.Errorf("invalid target: keyword is only used by keyword alert types")
		}
		if _, err := ParseStatusCodes(t.AlertStatusCodes); err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}
	default:
		if t.AlertKeyword != "" || t.AlertStatusCodes != "" {
			return fmt.Errorf("invalid target: alert type %s takes no parameters", t.Policy())
		}
	}

	if _, err := ParseHeaders(t.Headers); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	return nil
}

type CheckResult struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	TargetID         uint       `gorm:"index;not null" json:"target_id"`
	Status           Status     `gorm:"not null" json:"status"`
	ResponseTime     int64      `json:"response_time"`
	StatusCode       int        `json:"status_code"`
	Error            string     `json:"error,omitempty"`
	TLSValid         *bool      `json:"tls_valid,omitempty"`
	TLSExpiresAt     *time.Time `json:"tls_expires_at,omitempty"`
	TLSIssuer        string     `json:"tls_issuer,omitempty"`
	TLSDaysRemaining *int       `json:"tls_days_remaining,omitempty"`
	DNSValid         *bool      `json:"dns_valid,omitempty"`
	DNSError         string     `json:"dns_error,omitempty"`
}

// Success reports whether the check did not end in a down verdict.
func (c *CheckResult) Success() bool {
	return c.Status != StatusDown
}

type Incident struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	TargetID         uint       `gorm:"index;not null" json:"target_id"`
	StartedAt        time.Time  `gorm:"index" json:"started_at"`
	ResolvedAt       *time.Time `gorm:"index" json:"resolved_at"`
	DurationSeconds  *int64     `json:"duration_seconds"`
	ErrorMessage     string     `json:"error_message"`
	NotificationSent bool       `gorm:"default:false" json:"notification_sent"`
	RecoveryNotified bool       `gorm:"default:false" json:"recovery_notified"`
}

func (i *Incident) IsResolved() bool {
	return i.ResolvedAt != nil
}

// Duration is the recorded duration for resolved incidents and the live
// duration up to now for open ones.
func (i *Incident) Duration(now time.Time) time.Duration {
	if i.ResolvedAt != nil {
		if i.DurationSeconds != nil {
			return time.Duration(*i.DurationSeconds) * time.Second
		}
		return i.ResolvedAt.Sub(i.StartedAt)
	}
	d := now.Sub(i.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

type OnCallContact struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"not null" json:"name" validate:"required,max=100"`
	Email     string    `gorm:"not null" json:"email" validate:"required,email"`
	Phone     string    `json:"phone,omitempty" validate:"omitempty,max=32"`
}

func (c *OnCallContact) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid contact: %w", err)
	}
	return nil
}

type OnCallSchedule struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	ContactID  uint          `gorm:"index;not null" json:"contact_id" validate:"required"`
	Contact    OnCallContact `gorm:"foreignKey:ContactID" json:"contact" validate:"-"`
	Label      string        `json:"label"`
	StartTime  time.Time     `gorm:"index" json:"start_time" validate:"required"`
	EndTime    time.Time     `json:"end_time" validate:"required,gtfield=StartTime"`
	Recurrence Recurrence    `gorm:"default:none" json:"recurrence" validate:"omitempty,oneof=none daily weekly"`
}

func (s *OnCallSchedule) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}

// ParseStatusCodes parses a comma separated allow-list. Empty input means {200}.
func ParseStatusCodes(codes string) ([]int, error) {
	codes = strings.TrimSpace(codes)
	if codes == "" {
		return []int{200}, nil
	}

	parts := strings.Split(codes, ",")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		code, err := strconv.Atoi(p)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("invalid status code %q", p)
		}
		result = append(result, code)
	}

	if len(result) == 0 {
		return []int{200}, nil
	}
	return result, nil
}

// ParseHeaders decodes the stored JSON header object.
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]string{}, nil
	}
	headers := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return nil, fmt.Errorf("headers must be a JSON object of strings: %w", err)
	}
	return headers, nil
}
