// Package downtime reduces a target's incident history to uptime statistics.
package downtime

import (
	"math"
	"time"

	"github.com/ankityadav/upwatch/internal/storage"
)

// Window is the incident activity that started within a trailing period.
type Window struct {
	Label           string        `json:"label"`
	Period          time.Duration `json:"-"`
	Incidents       int           `json:"incidents"`
	DowntimeSeconds int64         `json:"downtime_seconds"`
}

// Log is the downtime summary for one target. All durations are whole
// seconds.
type Log struct {
	TotalIncidents       int               `json:"total_incidents"`
	ResolvedIncidents    int               `json:"resolved_incidents"`
	OpenIncident         *storage.Incident `json:"open_incident,omitempty"`
	OpenDurationSeconds  int64             `json:"open_duration_seconds"`
	TotalDowntimeSeconds int64             `json:"total_downtime_seconds"`
	AverageSeconds       int64             `json:"average_seconds"`
	LongestSeconds       int64             `json:"longest_seconds"`
	ShortestSeconds      int64             `json:"shortest_seconds"`
	MonitoredSeconds     int64             `json:"monitored_seconds"`
	UptimePercent        float64           `json:"uptime_percent"`
	Windows              []Window          `json:"windows"`
}

var windows = []struct {
	label  string
	period time.Duration
}{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
}

// Aggregate computes the downtime log from incidents, the target's creation
// time and the current instant. Incidents may be in any order.
func Aggregate(incidents []storage.Incident, createdAt, now time.Time) Log {
	log := Log{Windows: make([]Window, len(windows))}
	for i, w := range windows {
		log.Windows[i] = Window{Label: w.label, Period: w.period}
	}

	var resolvedSeconds int64
	for i := range incidents {
		inc := &incidents[i]
		seconds := durationSeconds(inc, now)

		log.TotalIncidents++
		log.TotalDowntimeSeconds += seconds

		if inc.IsResolved() {
			log.ResolvedIncidents++
			resolvedSeconds += seconds
			if log.ResolvedIncidents == 1 {
				log.LongestSeconds, log.ShortestSeconds = seconds, seconds
			} else {
				log.LongestSeconds = max(log.LongestSeconds, seconds)
				log.ShortestSeconds = min(log.ShortestSeconds, seconds)
			}
		} else if log.OpenIncident == nil || inc.StartedAt.After(log.OpenIncident.StartedAt) {
			open := *inc
			log.OpenIncident = &open
			log.OpenDurationSeconds = seconds
		}

		for j := range log.Windows {
			if !inc.StartedAt.Before(now.Add(-log.Windows[j].Period)) {
				log.Windows[j].Incidents++
				log.Windows[j].DowntimeSeconds += seconds
			}
		}
	}

	if log.ResolvedIncidents > 0 {
		log.AverageSeconds = resolvedSeconds / int64(log.ResolvedIncidents)
	}

	log.MonitoredSeconds = int64(math.Floor(now.Sub(createdAt).Seconds()))
	log.UptimePercent = uptime(log.TotalDowntimeSeconds, log.MonitoredSeconds)
	return log
}

func uptime(downtime, monitored int64) float64 {
	if monitored <= 0 {
		return 100
	}
	pct := (1 - float64(downtime)/float64(monitored)) * 100
	pct = math.Max(0, math.Min(100, pct))
	return math.Round(pct*1000) / 1000
}

// durationSeconds is the stored duration for resolved incidents and the live
// duration for open ones.
func durationSeconds(inc *storage.Incident, now time.Time) int64 {
	if inc.DurationSeconds != nil {
		return *inc.DurationSeconds
	}
	return max(0, int64(inc.Duration(now)/time.Second))
}
