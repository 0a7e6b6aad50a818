package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved is returned when resolving an incident twice.
	ErrAlreadyResolved = errors.New("incident already resolved")
)

type Database struct {
	db *gorm.DB
}

func New(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Target{}, &CheckResult{}, &Incident{}, &OnCallContact{}, &OnCallSchedule{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Targets

func (d *Database) CreateTarget(t *Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CurrentStatus == "" {
		t.CurrentStatus = StatusUnknown
	}
	enabled := t.Enabled
	if err := d.db.Create(t).Error; err != nil {
		return err
	}
	// gorm substitutes the column default for a false bool.
	if !enabled {
		t.Enabled = false
		return d.ToggleTarget(t.ID, false)
	}
	return nil
}

func (d *Database) GetTarget(id uint) (*Target, error) {
	var t Target
	if err := d.db.First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (d *Database) ListTargets() ([]Target, error) {
	var targets []Target
	err := d.db.Order("id asc").Find(&targets).Error
	return targets, err
}

func (d *Database) ListEnabledTargets() ([]Target, error) {
	var targets []Target
	err := d.db.Where("enabled = ?", true).Order("id asc").Find(&targets).Error
	return targets, err
}

// UpdateTarget saves admin edits to policy fields.
func (d *Database) UpdateTarget(t *Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return d.db.Save(t).Error
}

func (d *Database) DeleteTarget(id uint) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_id = ?", id).Delete(&CheckResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_id = ?", id).Delete(&Incident{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Target{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (d *Database) ToggleTarget(id uint, enabled bool) error {
	return d.db.Model(&Target{}).Where("id = ?", id).Update("enabled", enabled).Error
}

// UpdateTargetStatus records the outcome of a tick: last check time always,
// last status change time only when the status differs from the stored one.
func (d *Database) UpdateTargetStatus(id uint, status Status, checkedAt time.Time) error {
	checkedAt = checkedAt.UTC()
	return d.db.Transaction(func(tx *gorm.DB) error {
		var t Target
		if err := tx.Select("id", "current_status").First(&t, id).Error; err != nil {
			return notFound(err)
		}

		updates := map[string]interface{}{
			"current_status": status,
			"last_check_at":  checkedAt,
		}
		if t.CurrentStatus != status {
			updates["last_status_change_at"] = checkedAt
		}
		return tx.Model(&Target{}).Where("id = ?", id).Updates(updates).Error
	})
}

// Check results

func (d *Database) CreateCheckResult(cr *CheckResult) error {
	return d.db.Create(cr).Error
}

func (d *Database) GetRecentCheckResults(targetID uint, limit int) ([]CheckResult, error) {
	var results []CheckResult
	err := d.db.Where("target_id = ?", targetID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&results).Error
	return results, err
}

func (d *Database) GetCheckResultStats(targetID uint, since time.Time) (total, successful int64, avgResponseTime float64, err error) {
	err = d.db.Model(&CheckResult{}).
		Where("target_id = ? AND created_at >= ?", targetID, since.UTC()).
		Count(&total).Error
	if err != nil {
		return
	}

	err = d.db.Model(&CheckResult{}).
		Where("target_id = ? AND created_at >= ? AND status <> ?", targetID, since.UTC(), StatusDown).
		Count(&successful).Error
	if err != nil {
		return
	}

	var avg struct{ Avg float64 }
	err = d.db.Model(&CheckResult{}).
		Select("COALESCE(AVG(response_time), 0) as avg").
		Where("target_id = ? AND created_at >= ? AND status <> ?", targetID, since.UTC(), StatusDown).
		Scan(&avg).Error
	avgResponseTime = avg.Avg

	return
}

// Incidents

func (d *Database) CreateIncident(i *Incident) error {
	i.StartedAt = i.StartedAt.UTC()
	return d.db.Create(i).Error
}

// GetActiveIncident returns the most recent unresolved incident for the
// target, or nil when there is none.
func (d *Database) GetActiveIncident(targetID uint) (*Incident, error) {
	var i Incident
	err := d.db.Where("target_id = ? AND resolved_at IS NULL", targetID).
		Order("started_at desc").
		Order("id desc").
		First(&i).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ResolveIncident closes an open incident, fixing its duration in whole
// seconds. Resolving an already resolved incident returns ErrAlreadyResolved.
func (d *Database) ResolveIncident(id uint, at time.Time) (*Incident, error) {
	at = at.UTC()
	var resolved Incident
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&resolved, id).Error; err != nil {
			return notFound(err)
		}
		if resolved.ResolvedAt != nil {
			return ErrAlreadyResolved
		}

		duration := int64(at.Sub(resolved.StartedAt) / time.Second)
		if duration < 0 {
			duration = 0
		}

		res := tx.Model(&Incident{}).
			Where("id = ? AND resolved_at IS NULL", id).
			Updates(map[string]interface{}{
				"resolved_at":      at,
				"duration_seconds": duration,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}

		resolved.ResolvedAt = &at
		resolved.DurationSeconds = &duration
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (d *Database) MarkNotified(id uint) error {
	return d.db.Model(&Incident{}).Where("id = ?", id).Update("notification_sent", true).Error
}

func (d *Database) MarkRecoveryNotified(id uint) error {
	return d.db.Model(&Incident{}).Where("id = ?", id).Update("recovery_notified", true).Error
}

// ListIncidents returns incidents newest first. targetID 0 lists all targets.
func (d *Database) ListIncidents(targetID uint, limit int) ([]Incident, error) {
	var incidents []Incident
	q := d.db.Order("started_at desc").Order("id desc")
	if targetID != 0 {
		q = q.Where("target_id = ?", targetID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&incidents).Error
	return incidents, err
}

// On-call

func (d *Database) CreateContact(c *OnCallContact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return d.db.Create(c).Error
}

func (d *Database) ListContacts() ([]OnCallContact, error) {
	var contacts []OnCallContact
	err := d.db.Order("id asc").Find(&contacts).Error
	return contacts, err
}

func (d *Database) DeleteContact(id uint) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&OnCallSchedule{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&OnCallContact{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (d *Database) CreateSchedule(s *OnCallSchedule) error {
	if s.Recurrence == "" {
		s.Recurrence = RecurrenceNone
	}
	if err := s.Validate(); err != nil {
		return err
	}
	var count int64
	if err := d.db.Model(&OnCallContact{}).Where("id = ?", s.ContactID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("contact %d: %w", s.ContactID, ErrNotFound)
	}
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return d.db.Omit("Contact").Create(s).Error
}

// ListSchedules returns every schedule joined with its contact, ordered by
// start time.
func (d *Database) ListSchedules() ([]OnCallSchedule, error) {
	var schedules []OnCallSchedule
	err := d.db.Preload("Contact").
		Order("start_time asc").
		Order("id asc").
		Find(&schedules).Error
	return schedules, err
}

func (d *Database) DeleteSchedule(id uint) error {
	res := d.db.Delete(&OnCallSchedule{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
