package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ankityadav/upwatch/internal/storage"
)

type Event string

const (
	EventDown      Event = "down"
	EventRecovered Event = "recovered"
	EventTest      Event = "test"
)

// Message is the rendered notification. It is also the webhook payload.
type Message struct {
	ID        string                 `json:"id"`
	Event     Event                  `json:"event"`
	Title     string                 `json:"title"`
	Body      string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Target    *TargetInfo            `json:"target,omitempty"`
	Incident  *storage.Incident      `json:"incident,omitempty"`
	OnCall    *storage.OnCallContact `json:"on_call,omitempty"`
}

type TargetInfo struct {
	ID     uint           `json:"id"`
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Status storage.Status `json:"status"`
}

func newEventID() string {
	return uuid.NewString()
}

func (n *Notifier) message(event Event, target *storage.Target, incident *storage.Incident, contact *storage.OnCallContact) Message {
	status := storage.StatusDown
	if event == EventRecovered {
		status = storage.StatusOperational
	}
	return Message{
		ID:        newEventID(),
		Event:     event,
		Timestamp: n.now().UTC(),
		Target: &TargetInfo{
			ID:     target.ID,
			Name:   target.Name,
			URL:    target.URL,
			Status: status,
		},
		Incident: incident,
		OnCall:   contact,
	}
}

func (n *Notifier) postWebhook(ctx context.Context, url string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "upwatch/1.0")
	req.Header.Set("X-Upwatch-Event", string(msg.Event))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with HTTP %d", resp.StatusCode)
	}
	return nil
}
