package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/multierr"
	"gopkg.in/mail.v2"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/storage"
)

const sendTimeout = 15 * time.Second

// mailSender is satisfied by *mail.Dialer.
type mailSender interface {
	DialAndSend(m ...*mail.Message) error
	Dial() (mail.SendCloser, error)
}

type Notifier struct {
	cfg     config.NotificationConfig
	log     *logger.Logger
	client  *http.Client
	mailer  mailSender
	desktop func(title, message string, critical bool) error
	now     func() time.Time
}

func New(cfg config.NotificationConfig, log *logger.Logger) *Notifier {
	n := &Notifier{
		cfg:     cfg,
		log:     log.Named("notifier"),
		client:  &http.Client{Timeout: sendTimeout},
		desktop: desktopAlert,
		now:     time.Now,
	}
	if cfg.Email.Enabled() {
		n.mailer = newDialer(cfg.Email)
	}
	return n
}

func newDialer(cfg config.EmailConfig) *mail.Dialer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	d.Timeout = sendTimeout
	if cfg.TLS {
		d.SSL = true
	} else {
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return d
}

func desktopAlert(title, message string, critical bool) error {
	if critical {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}

// SendDown announces a new incident. The on-call contact, when present, gets
// an email in addition to the configured recipients.
func (n *Notifier) SendDown(ctx context.Context, target *storage.Target, incident *storage.Incident, contact *storage.OnCallContact) error {
	msg := n.message(EventDown, target, incident, contact)
	msg.Title = fmt.Sprintf("🔴 %s is DOWN", target.Name)
	msg.Body = fmt.Sprintf("URL: %s\nError: %s\nSince: %s", target.URL, incident.ErrorMessage, incident.StartedAt.UTC().Format(time.RFC3339))
	if contact != nil {
		msg.Body += fmt.Sprintf("\nOn call: %s <%s>", contact.Name, contact.Email)
	}
	return n.deliver(ctx, msg, contact)
}

// SendRecovered announces that an incident was resolved.
func (n *Notifier) SendRecovered(ctx context.Context, target *storage.Target, incident *storage.Incident, contact *storage.OnCallContact) error {
	msg := n.message(EventRecovered, target, incident, contact)
	msg.Title = fmt.Sprintf("✅ %s is UP", target.Name)
	msg.Body = fmt.Sprintf("URL: %s has recovered", target.URL)
	if incident.DurationSeconds != nil {
		msg.Body += fmt.Sprintf("\nDowntime: %s", time.Duration(*incident.DurationSeconds)*time.Second)
	}
	return n.deliver(ctx, msg, contact)
}

// SendTest sends a test message to every configured recipient.
func (n *Notifier) SendTest(ctx context.Context) error {
	msg := Message{
		ID:        newEventID(),
		Event:     EventTest,
		Title:     "upwatch test notification",
		Body:      "If you can read this, notifications are configured correctly.",
		Timestamp: n.now().UTC(),
	}
	return n.deliver(ctx, msg, nil)
}

// TestConnection reports whether the SMTP server accepts a connection and
// the configured credentials.
func (n *Notifier) TestConnection(ctx context.Context) bool {
	if n.mailer == nil {
		return false
	}
	err := withContext(ctx, func() error {
		conn, err := n.mailer.Dial()
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		n.log.Warn("smtp connection test failed", "host", n.cfg.Email.Host, "error", err)
		return false
	}
	return true
}

type delivery struct {
	recipient string
	send      func(ctx context.Context) error
}

// deliver attempts every recipient independently. It only fails when every
// attempt failed.
func (n *Notifier) deliver(ctx context.Context, msg Message, contact *storage.OnCallContact) error {
	deliveries := n.deliveries(msg, contact)
	if len(deliveries) == 0 {
		n.log.Debug("no recipients configured, dropping notification", "event", msg.Event)
		return nil
	}

	var errs error
	failed := 0
	for _, d := range deliveries {
		if err := d.send(ctx); err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.recipient, err))
			n.log.Warn("notification delivery failed", "event", msg.Event, "recipient", d.recipient, "error", err)
			continue
		}
		n.log.Debug("notification delivered", "event", msg.Event, "recipient", d.recipient)
	}

	if failed == len(deliveries) {
		return fmt.Errorf("all %d notification deliveries failed: %w", failed, errs)
	}
	return nil
}

func (n *Notifier) deliveries(msg Message, contact *storage.OnCallContact) []delivery {
	var out []delivery

	if n.cfg.Desktop && n.desktop != nil {
		out = append(out, delivery{
			recipient: "desktop",
			send: func(ctx context.Context) error {
				return n.desktop(msg.Title, msg.Body, msg.Event == EventDown)
			},
		})
	}

	if n.mailer != nil {
		for _, addr := range emailRecipients(n.cfg.Email.Recipients, contact) {
			addr := addr
			out = append(out, delivery{
				recipient: "email:" + addr,
				send: func(ctx context.Context) error {
					return n.sendEmail(ctx, addr, msg)
				},
			})
		}
	}

	for _, url := range n.cfg.Webhooks {
		url := url
		out = append(out, delivery{
			recipient: "webhook:" + url,
			send: func(ctx context.Context) error {
				return n.postWebhook(ctx, url, msg)
			},
		})
	}

	return out
}

func emailRecipients(configured []string, contact *storage.OnCallContact) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, addr)
	}
	for _, addr := range configured {
		add(addr)
	}
	if contact != nil {
		add(contact.Email)
	}
	return out
}

func (n *Notifier) sendEmail(ctx context.Context, to string, msg Message) error {
	m := mail.NewMessage()
	m.SetHeader("From", n.cfg.Email.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Title)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@upwatch>", msg.ID))
	m.SetBody("text/plain", msg.Body)

	return withContext(ctx, func() error {
		return n.mailer.DialAndSend(m)
	})
}

// withContext runs fn, giving up when ctx is done or after sendTimeout.
func withContext(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("gave up waiting for smtp: %w", ctx.Err())
	}
}
