package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/downtime"
	"github.com/ankityadav/upwatch/internal/incident"
	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/oncall"
	"github.com/ankityadav/upwatch/internal/probe"
	"github.com/ankityadav/upwatch/internal/storage"
)

var ErrNotScheduled = errors.New("target is not scheduled")

// Store is everything the engine needs from persistence.
type Store interface {
	incident.Store
	GetTarget(id uint) (*storage.Target, error)
	ListEnabledTargets() ([]storage.Target, error)
	CreateCheckResult(cr *storage.CheckResult) error
	UpdateTargetStatus(id uint, status storage.Status, checkedAt time.Time) error
	ListIncidents(targetID uint, limit int) ([]storage.Incident, error)
}

// Prober runs one check for a compiled plan.
type Prober interface {
	Check(ctx context.Context, plan *probe.Plan) storage.CheckResult
}

type Engine struct {
	store    Store
	prober   Prober
	tracker  *incident.Tracker
	log      *logger.Logger
	registry *Registry
	cron     *cron.Cron
	lookback int
	now      func() time.Time

	// mu serializes scheduling changes so that a target never has two live
	// timers, and guards the run state below.
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(store Store, prober Prober, n incident.Notifier, log *logger.Logger) *Engine {
	log = log.Named("checker")
	cronLog := log.CronLogger()

	return &Engine{
		store:    store,
		prober:   prober,
		tracker:  incident.NewTracker(store, n, log),
		log:      log,
		registry: NewRegistry(),
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		lookback: config.DefaultIncidentLookback,
		now:      time.Now,
		ctx:      context.Background(),
		cancel:   func() {},
	}
}

// SetIncidentLookback bounds how many incidents AggregateDowntime reads.
func (e *Engine) SetIncidentLookback(n int) {
	if n > 0 {
		e.lookback = n
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// StartAll schedules every enabled target and starts the timers. Each target
// is checked once immediately.
func (e *Engine) StartAll(ctx context.Context) error {
	targets, err := e.store.ListEnabledTargets()
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.mu.Unlock()

	for i := range targets {
		if err := e.ScheduleTarget(&targets[i]); err != nil {
			e.log.Warn("skipping invalid target", "target", targets[i].Name, "id", targets[i].ID, "error", err)
		}
	}

	e.cron.Start()
	e.log.Info("engine started", "targets", e.registry.Len())
	return nil
}

// StopAll stops every timer and cancels in-flight checks. It does not wait
// for them to return.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.cron.Stop()
	e.cancel()
	e.log.Info("engine stopped")
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ScheduleTarget installs or replaces the timer for t. Disabled targets are
// unscheduled instead.
func (e *Engine) ScheduleTarget(t *storage.Target) error {
	if !t.Enabled {
		e.UnscheduleTarget(t.ID)
		return nil
	}

	plan, err := probe.Compile(t)
	if err != nil {
		return err
	}

	interval := time.Duration(t.CheckInterval) * time.Second
	id := t.ID

	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.registry.get(id); ok {
		e.cron.Remove(old.entryID)
	}
	entryID := e.cron.Schedule(cron.Every(interval), cron.FuncJob(func() { e.tick(id) }))
	e.registry.put(id, registration{entryID: entryID, plan: plan})

	e.log.Debug("target scheduled", "target", t.Name, "id", id, "interval", interval)

	if e.running {
		go e.tick(id)
	}
	return nil
}

// UnscheduleTarget cancels the target's timer. A check already in flight
// finishes on its own.
func (e *Engine) UnscheduleTarget(id uint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.registry.remove(id); ok {
		e.cron.Remove(old.entryID)
		e.log.Debug("target unscheduled", "id", id)
	}
}

func (e *Engine) Scheduled(id uint) bool {
	return e.registry.Has(id)
}

// NextRun reports when the target's timer fires next.
func (e *Engine) NextRun(id uint) (time.Time, error) {
	reg, ok := e.registry.get(id)
	if !ok {
		return time.Time{}, ErrNotScheduled
	}
	return e.cron.Entry(reg.entryID).Next, nil
}

// CheckNow runs a check for t outside its timer, waiting for any check of the
// same target that is already running.
func (e *Engine) CheckNow(ctx context.Context, t *storage.Target) (storage.CheckResult, error) {
	plan, err := probe.Compile(t)
	if err != nil {
		return storage.CheckResult{}, err
	}

	release, err := e.registry.acquire(ctx, t.ID)
	if err != nil {
		return storage.CheckResult{}, err
	}
	defer release()

	return e.run(ctx, plan)
}

func (e *Engine) baseContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

func (e *Engine) tick(id uint) {
	log := e.log.With("id", id)

	release, ok := e.registry.tryAcquire(id)
	if !ok {
		log.Debug("previous check still running, skipping tick")
		return
	}
	defer release()

	reg, ok := e.registry.get(id)
	if !ok {
		return
	}

	ctx := e.baseContext()
	if ctx.Err() != nil {
		return
	}

	_, err := e.run(ctx, reg.plan)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		log.Info("target no longer exists, unscheduling")
		e.UnscheduleTarget(id)
	case errors.Is(err, context.Canceled):
	default:
		log.Error("check abandoned", "error", err)
	}
}

// run is one complete check of a target. The caller holds the target's slot.
func (e *Engine) run(ctx context.Context, plan *probe.Plan) (storage.CheckResult, error) {
	target, err := e.store.GetTarget(plan.TargetID)
	if err != nil {
		return storage.CheckResult{}, fmt.Errorf("failed to load target %d: %w", plan.TargetID, err)
	}

	result := e.prober.Check(ctx, plan)
	if err := ctx.Err(); err != nil {
		// A cancelled probe says nothing about the target.
		return result, err
	}

	if err := e.store.CreateCheckResult(&result); err != nil {
		return result, fmt.Errorf("failed to record check: %w", err)
	}

	if _, err := e.tracker.Evaluate(ctx, target, target.CurrentStatus, result.Status, result.Error); err != nil {
		return result, err
	}

	if err := e.store.UpdateTargetStatus(target.ID, result.Status, result.CreatedAt); err != nil {
		return result, fmt.Errorf("failed to update target status: %w", err)
	}

	e.log.With("target", target.Name, "id", target.ID).
		Debug("check complete", "status", result.Status, "response_ms", result.ResponseTime)
	return result, nil
}

// ResolveOnCall returns the schedule active at now, or nil.
func (e *Engine) ResolveOnCall(now time.Time) (*storage.OnCallSchedule, error) {
	schedules, err := e.store.ListSchedules()
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	return oncall.Resolve(schedules, now), nil
}

// AggregateDowntime summarizes the target's most recent incidents.
func (e *Engine) AggregateDowntime(targetID uint) (downtime.Log, error) {
	target, err := e.store.GetTarget(targetID)
	if err != nil {
		return downtime.Log{}, fmt.Errorf("failed to load target %d: %w", targetID, err)
	}
	incidents, err := e.store.ListIncidents(targetID, e.lookback)
	if err != nil {
		return downtime.Log{}, fmt.Errorf("failed to load incidents: %w", err)
	}
	return downtime.Aggregate(incidents, target.CreatedAt, e.now()), nil
}
