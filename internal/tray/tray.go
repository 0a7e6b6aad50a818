package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"go.uber.org/multierr"

	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/storage"
)

const (
	refreshInterval = 15 * time.Second
	checkAllTimeout = 2 * time.Minute
)

// Store is what the tray reads. *storage.Database satisfies it.
type Store interface {
	ListEnabledTargets() ([]storage.Target, error)
}

// Engine runs checks on the tray's behalf. *checker.Engine satisfies it.
type Engine interface {
	CheckNow(ctx context.Context, t *storage.Target) (storage.CheckResult, error)
	ResolveOnCall(now time.Time) (*storage.OnCallSchedule, error)
}

type level int

const (
	levelUnknown level = iota
	levelOperational
	levelDegraded
	levelDown
)

// TrayApp mirrors the scheduler's view of every enabled target in the menu bar.
// Checks themselves are owned by the engine.
type TrayApp struct {
	db       Store
	engine   Engine
	log      *logger.Logger
	mu       sync.Mutex
	stopChan chan struct{}
	mStatus  *systray.MenuItem
	mOnCall  *systray.MenuItem
	mTargets []*systray.MenuItem
}

func New(db Store, engine Engine, log *logger.Logger) *TrayApp {
	return &TrayApp{
		db:       db,
		engine:   engine,
		log:      log.Named("tray"),
		stopChan: make(chan struct{}),
	}
}

// Run blocks until the user quits from the menu.
func (t *TrayApp) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *TrayApp) onReady() {
	systray.SetIcon(greyIcon)
	systray.SetTitle("")
	systray.SetTooltip("upwatch - starting")

	t.mStatus = systray.AddMenuItem("○ Waiting for first checks", "Current status")
	t.mStatus.Disable()
	t.mOnCall = systray.AddMenuItem("Nobody on call", "Current on-call contact")
	t.mOnCall.Disable()

	systray.AddSeparator()

	mHeader := systray.AddMenuItem("── Targets ──", "")
	mHeader.Disable()

	t.refresh()

	systray.AddSeparator()

	mCheck := systray.AddMenuItem("↻ Check All Now", "Check every enabled target immediately")

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit upwatch", "Stop monitoring and exit")

	go t.watch()

	go func() {
		for {
			select {
			case <-mCheck.ClickedCh:
				go t.checkAll()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			case <-t.stopChan:
				return
			}
		}
	}()
}

func (t *TrayApp) onExit() {
	close(t.stopChan)
}

func (t *TrayApp) watch() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.refresh()
		case <-t.stopChan:
			return
		}
	}
}

// refresh redraws the menu from stored statuses.
func (t *TrayApp) refresh() {
	targets, err := t.db.ListEnabledTargets()
	if err != nil {
		t.log.Warn("Failed to load targets", "error", err)
		return
	}

	var onCall *storage.OnCallSchedule
	if t.engine != nil {
		if onCall, err = t.engine.ResolveOnCall(time.Now()); err != nil {
			t.log.Warn("Failed to resolve on-call", "error", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, target := range targets {
		if i < len(t.mTargets) {
			t.mTargets[i].SetTitle(targetLabel(target))
			t.mTargets[i].SetTooltip(target.URL)
			t.mTargets[i].Show()
			continue
		}
		item := systray.AddMenuItem(targetLabel(target), target.URL)
		item.Disable()
		t.mTargets = append(t.mTargets, item)
	}
	for _, item := range t.mTargets[len(targets):] {
		item.Hide()
	}

	if t.mOnCall != nil {
		t.mOnCall.SetTitle(onCallLabel(onCall))
	}

	lvl, message := summarize(targets)
	t.setLevel(lvl, message)
}

// checkAll asks the engine for a fresh check of every enabled target.
func (t *TrayApp) checkAll() {
	if t.engine == nil {
		return
	}
	targets, err := t.db.ListEnabledTargets()
	if err != nil {
		t.log.Warn("Failed to load targets", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkAllTimeout)
	defer cancel()

	if err := t.checkAllWith(ctx, targets); err != nil {
		t.log.Warn("Some checks failed to run", "error", err)
	}
	t.refresh()
}

func (t *TrayApp) checkAllWith(ctx context.Context, targets []storage.Target) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for i := range targets {
		wg.Add(1)
		go func(target *storage.Target) {
			defer wg.Done()
			if _, err := t.engine.CheckNow(ctx, target); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", target.Name, err))
				mu.Unlock()
			}
		}(&targets[i])
	}
	wg.Wait()
	return errs
}

func (t *TrayApp) setLevel(lvl level, message string) {
	icon, mark := greyIcon, "○"
	switch lvl {
	case levelOperational:
		icon, mark = greenIcon, "●"
	case levelDegraded:
		icon, mark = yellowIcon, "◐"
	case levelDown:
		icon, mark = redIcon, "✗"
	}

	systray.SetIcon(icon)
	systray.SetTooltip("upwatch - " + message)
	if t.mStatus != nil {
		t.mStatus.SetTitle(mark + " " + message)
	}
}

// summarize picks the worst status across targets for the tray icon.
func summarize(targets []storage.Target) (level, string) {
	if len(targets) == 0 {
		return levelUnknown, "No targets configured"
	}

	var up, degraded, down, unknown int
	for _, t := range targets {
		switch t.CurrentStatus {
		case storage.StatusOperational:
			up++
		case storage.StatusDegraded:
			degraded++
		case storage.StatusDown:
			down++
		default:
			unknown++
		}
	}

	switch {
	case down > 0:
		return levelDown, fmt.Sprintf("%d down, %d degraded, %d up", down, degraded, up)
	case degraded > 0:
		return levelDegraded, fmt.Sprintf("%d degraded, %d up", degraded, up)
	case up == 0:
		return levelUnknown, fmt.Sprintf("%d targets not checked yet", unknown)
	case unknown > 0:
		return levelOperational, fmt.Sprintf("%d up, %d pending", up, unknown)
	default:
		return levelOperational, fmt.Sprintf("All %d targets operational", up)
	}
}

func targetLabel(t storage.Target) string {
	switch t.CurrentStatus {
	case storage.StatusOperational:
		return "✓ " + t.Name
	case storage.StatusDegraded:
		return fmt.Sprintf("◐ %s (DEGRADED)", t.Name)
	case storage.StatusDown:
		return fmt.Sprintf("✗ %s (DOWN)", t.Name)
	default:
		return "○ " + t.Name
	}
}

func onCallLabel(s *storage.OnCallSchedule) string {
	if s == nil {
		return "Nobody on call"
	}
	return fmt.Sprintf("On call: %s <%s>", s.Contact.Name, s.Contact.Email)
}
