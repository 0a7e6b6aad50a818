// Package oncall decides which schedule window is active at a given instant.
package oncall

import (
	"sort"
	"time"

	"github.com/ankityadav/upwatch/internal/storage"
)

const minutesPerDay = 24 * 60

// Resolve returns the first schedule, ordered by start time, whose window
// contains now. It returns nil when nobody is on call.
func Resolve(schedules []storage.OnCallSchedule, now time.Time) *storage.OnCallSchedule {
	ordered := make([]storage.OnCallSchedule, len(schedules))
	copy(ordered, schedules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime.Before(ordered[j].StartTime)
	})

	for i := range ordered {
		if Active(&ordered[i], now) {
			s := ordered[i]
			return &s
		}
	}
	return nil
}

// Active reports whether the schedule covers now. Daily and weekly windows
// are compared in UTC; an end before the start wraps past midnight or past
// the end of the week.
func Active(s *storage.OnCallSchedule, now time.Time) bool {
	switch s.Recurrence {
	case storage.RecurrenceDaily:
		return inWindow(minuteOfDay(s.StartTime), minuteOfDay(s.EndTime), minuteOfDay(now))
	case storage.RecurrenceWeekly:
		return inWindow(minuteOfWeek(s.StartTime), minuteOfWeek(s.EndTime), minuteOfWeek(now))
	default:
		return !now.Before(s.StartTime) && !now.After(s.EndTime)
	}
}

func inWindow(start, end, at int) bool {
	if start <= end {
		return at >= start && at <= end
	}
	return at >= start || at <= end
}

func minuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// minuteOfWeek counts from Sunday 00:00 UTC.
func minuteOfWeek(t time.Time) int {
	t = t.UTC()
	return int(t.Weekday())*minutesPerDay + minuteOfDay(t)
}
