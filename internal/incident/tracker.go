// Package incident turns status transitions into incident lifecycle events.
package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/oncall"
	"github.com/ankityadav/upwatch/internal/storage"
)

// Store is the subset of storage.Database the tracker reads and writes.
type Store interface {
	GetActiveIncident(targetID uint) (*storage.Incident, error)
	CreateIncident(i *storage.Incident) error
	ResolveIncident(id uint, at time.Time) (*storage.Incident, error)
	MarkNotified(id uint) error
	MarkRecoveryNotified(id uint) error
	ListSchedules() ([]storage.OnCallSchedule, error)
}

// Notifier delivers incident alerts. Contact is nil when nobody is on call.
type Notifier interface {
	SendDown(ctx context.Context, target *storage.Target, incident *storage.Incident, contact *storage.OnCallContact) error
	SendRecovered(ctx context.Context, target *storage.Target, incident *storage.Incident, contact *storage.OnCallContact) error
}

type Transition int

const (
	TransitionNone Transition = iota
	TransitionOpened
	TransitionResolved
	TransitionDegraded
)

func (t Transition) String() string {
	switch t {
	case TransitionOpened:
		return "opened"
	case TransitionResolved:
		return "resolved"
	case TransitionDegraded:
		return "degraded"
	default:
		return "none"
	}
}

type Tracker struct {
	store    Store
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewTracker(store Store, notifier Notifier, log *logger.Logger) *Tracker {
	return &Tracker{
		store:    store,
		notifier: notifier,
		log:      log.Named("incident"),
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Evaluate applies the incident state machine for one tick of target. The
// caller must serialize calls per target. Store errors are returned and leave
// the transition to be re-evaluated on the next tick; notification failures
// are only logged.
//
// Any non-down tick closes an open incident, whatever previous says: a tick
// that opened the incident may have failed to persist the down status.
func (t *Tracker) Evaluate(ctx context.Context, target *storage.Target, previous, current storage.Status, message string) (Transition, error) {
	if current == storage.StatusDown {
		if previous == storage.StatusDown {
			return TransitionNone, nil
		}
		return t.open(ctx, target, message)
	}

	active, err := t.store.GetActiveIncident(target.ID)
	if err != nil {
		return TransitionNone, fmt.Errorf("failed to load active incident: %w", err)
	}
	if active != nil {
		return t.resolve(ctx, target, active)
	}

	switch {
	case previous == storage.StatusDown:
		t.log.Warn("recovered without an open incident", "target", target.Name)
	case current == storage.StatusDegraded && previous != storage.StatusDegraded:
		t.log.Warn("target degraded", "target", target.Name, "reason", message)
		return TransitionDegraded, nil
	}
	return TransitionNone, nil
}

func (t *Tracker) open(ctx context.Context, target *storage.Target, message string) (Transition, error) {
	inc, err := t.store.GetActiveIncident(target.ID)
	if err != nil {
		return TransitionNone, fmt.Errorf("failed to load active incident: %w", err)
	}

	if inc == nil {
		inc = &storage.Incident{
			TargetID:     target.ID,
			StartedAt:    t.now().UTC(),
			ErrorMessage: message,
		}
		if err := t.store.CreateIncident(inc); err != nil {
			return TransitionNone, fmt.Errorf("failed to open incident: %w", err)
		}
		t.log.Warn("incident opened", "target", target.Name, "incident", inc.ID, "reason", message)
	}

	if inc.NotificationSent {
		return TransitionOpened, nil
	}

	contact := t.onCall()
	if err := t.notifier.SendDown(ctx, target, inc, contact); err != nil {
		t.log.Error("down notification failed", "target", target.Name, "incident", inc.ID, "error", err)
		return TransitionOpened, nil
	}
	if err := t.store.MarkNotified(inc.ID); err != nil {
		t.log.Error("failed to mark incident notified", "incident", inc.ID, "error", err)
	}
	return TransitionOpened, nil
}

func (t *Tracker) resolve(ctx context.Context, target *storage.Target, active *storage.Incident) (Transition, error) {
	inc, err := t.store.ResolveIncident(active.ID, t.now().UTC())
	if err != nil {
		return TransitionNone, fmt.Errorf("failed to resolve incident: %w", err)
	}
	t.log.Info("incident resolved", "target", target.Name, "incident", inc.ID, "duration_seconds", derefInt64(inc.DurationSeconds))

	contact := t.onCall()
	if err := t.notifier.SendRecovered(ctx, target, inc, contact); err != nil {
		t.log.Error("recovery notification failed", "target", target.Name, "incident", inc.ID, "error", err)
		return TransitionResolved, nil
	}
	if err := t.store.MarkRecoveryNotified(inc.ID); err != nil {
		t.log.Error("failed to mark recovery notified", "incident", inc.ID, "error", err)
	}
	return TransitionResolved, nil
}

// onCall returns the contact responsible right now, or nil. A failure to read
// schedules only costs the on-call address on this alert.
func (t *Tracker) onCall() *storage.OnCallContact {
	schedules, err := t.store.ListSchedules()
	if err != nil {
		t.log.Error("failed to load on-call schedules", "error", err)
		return nil
	}
	s := oncall.Resolve(schedules, t.now())
	if s == nil {
		return nil
	}
	contact := s.Contact
	return &contact
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
