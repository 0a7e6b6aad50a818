package checker

import (
	"sort"
	"sync"
	"time"

	"github.com/ankityadav/upwatch/internal/storage"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu        sync.Mutex
	targets   map[uint]*storage.Target
	checks    []storage.CheckResult
	incidents []*storage.Incident
	schedules []storage.OnCallSchedule
	nextID    uint

	createCheckErr error
	statusUpdates  int
}

func newMemStore(targets ...storage.Target) *memStore {
	s := &memStore{targets: make(map[uint]*storage.Target)}
	for i := range targets {
		t := targets[i]
		if t.CurrentStatus == "" {
			t.CurrentStatus = storage.StatusUnknown
		}
		s.targets[t.ID] = &t
	}
	return s
}

func (s *memStore) GetTarget(id uint) (*storage.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) ListEnabledTargets() ([]storage.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Target
	for _, t := range s.targets {
		if t.Enabled {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) deleteTarget(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, id)
}

func (s *memStore) status(id uint) storage.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[id].CurrentStatus
}

func (s *memStore) CreateCheckResult(cr *storage.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createCheckErr != nil {
		return s.createCheckErr
	}
	s.nextID++
	cr.ID = s.nextID
	s.checks = append(s.checks, *cr)
	return nil
}

func (s *memStore) checkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checks)
}

func (s *memStore) UpdateTargetStatus(id uint, status storage.Status, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.statusUpdates++
	if t.CurrentStatus != status {
		t.LastStatusChangeAt = &checkedAt
	}
	t.CurrentStatus = status
	t.LastCheckAt = &checkedAt
	return nil
}

func (s *memStore) GetActiveIncident(targetID uint) (*storage.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.incidents) - 1; i >= 0; i-- {
		if inc := s.incidents[i]; inc.TargetID == targetID && inc.ResolvedAt == nil {
			cp := *inc
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateIncident(i *storage.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	i.ID = s.nextID
	cp := *i
	s.incidents = append(s.incidents, &cp)
	return nil
}

func (s *memStore) findIncident(id uint) *storage.Incident {
	for _, inc := range s.incidents {
		if inc.ID == id {
			return inc
		}
	}
	return nil
}

func (s *memStore) ResolveIncident(id uint, at time.Time) (*storage.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc := s.findIncident(id)
	if inc == nil {
		return nil, storage.ErrNotFound
	}
	if inc.ResolvedAt != nil {
		return nil, storage.ErrAlreadyResolved
	}
	d := max(0, int64(at.Sub(inc.StartedAt)/time.Second))
	inc.ResolvedAt = &at
	inc.DurationSeconds = &d
	cp := *inc
	return &cp, nil
}

func (s *memStore) MarkNotified(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findIncident(id).NotificationSent = true
	return nil
}

func (s *memStore) MarkRecoveryNotified(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findIncident(id).RecoveryNotified = true
	return nil
}

func (s *memStore) ListIncidents(targetID uint, limit int) ([]storage.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Incident
	for i := len(s.incidents) - 1; i >= 0; i-- {
		inc := s.incidents[i]
		if targetID != 0 && inc.TargetID != targetID {
			continue
		}
		out = append(out, *inc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) incidentsFor(targetID uint) []storage.Incident {
	out, _ := s.ListIncidents(targetID, 0)
	return out
}

func (s *memStore) ListSchedules() ([]storage.OnCallSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.OnCallSchedule(nil), s.schedules...), nil
}
