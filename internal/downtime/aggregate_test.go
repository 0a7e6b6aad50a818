package downtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/upwatch/internal/storage"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func resolved(startedAgo time.Duration, seconds int64) storage.Incident {
	start := now.Add(-startedAgo)
	end := start.Add(time.Duration(seconds) * time.Second)
	return storage.Incident{
		StartedAt:       start,
		ResolvedAt:      &end,
		DurationSeconds: &seconds,
	}
}

func openSince(startedAgo time.Duration) storage.Incident {
	return storage.Incident{StartedAt: now.Add(-startedAgo)}
}

func TestAggregateNoIncidents(t *testing.T) {
	log := Aggregate(nil, now.Add(-48*time.Hour), now)

	assert.Equal(t, 0, log.TotalIncidents)
	assert.Nil(t, log.OpenIncident)
	assert.Equal(t, 100.0, log.UptimePercent)
	require.Len(t, log.Windows, 3)
	assert.Equal(t, "24h", log.Windows[0].Label)
	assert.Equal(t, "7d", log.Windows[1].Label)
	assert.Equal(t, "30d", log.Windows[2].Label)
}

func TestAggregateStatistics(t *testing.T) {
	incidents := []storage.Incident{
		resolved(2*time.Hour, 120),
		resolved(3*24*time.Hour, 600),
		resolved(20*24*time.Hour, 60),
		resolved(60*24*time.Hour, 3600),
		openSince(30 * time.Minute),
	}

	log := Aggregate(incidents, now.Add(-90*24*time.Hour), now)

	assert.Equal(t, 5, log.TotalIncidents)
	assert.Equal(t, 4, log.ResolvedIncidents)
	require.NotNil(t, log.OpenIncident)
	assert.Equal(t, int64(1800), log.OpenDurationSeconds)
	assert.Equal(t, int64(120+600+60+3600+1800), log.TotalDowntimeSeconds)
	assert.Equal(t, int64((120+600+60+3600)/4), log.AverageSeconds)
	assert.Equal(t, int64(3600), log.LongestSeconds)
	assert.Equal(t, int64(60), log.ShortestSeconds)

	assert.Equal(t, 2, log.Windows[0].Incidents)
	assert.Equal(t, int64(120+1800), log.Windows[0].DowntimeSeconds)
	assert.Equal(t, 3, log.Windows[1].Incidents)
	assert.Equal(t, int64(120+600+1800), log.Windows[1].DowntimeSeconds)
	assert.Equal(t, 4, log.Windows[2].Incidents)
	assert.Equal(t, int64(120+600+60+1800), log.Windows[2].DowntimeSeconds)
}

func TestAggregateWindowCutoffIsInclusive(t *testing.T) {
	log := Aggregate([]storage.Incident{resolved(24*time.Hour, 10)}, now.Add(-48*time.Hour), now)
	assert.Equal(t, 1, log.Windows[0].Incidents)
}

func TestAggregateUptimeRounding(t *testing.T) {
	// One hour down out of seven days is 99.40476...%.
	log := Aggregate([]storage.Incident{resolved(2*time.Hour, 3600)}, now.Add(-7*24*time.Hour), now)
	assert.Equal(t, int64(7*24*3600), log.MonitoredSeconds)
	assert.Equal(t, 99.405, log.UptimePercent)
}

func TestAggregateUptimeClamped(t *testing.T) {
	// Downtime longer than the monitored period cannot push uptime below zero.
	log := Aggregate([]storage.Incident{resolved(time.Hour, 7200)}, now.Add(-time.Hour), now)
	assert.Equal(t, 0.0, log.UptimePercent)
}

func TestAggregateFutureCreationDefaultsToFullUptime(t *testing.T) {
	log := Aggregate([]storage.Incident{openSince(time.Minute)}, now.Add(time.Hour), now)
	assert.Equal(t, 100.0, log.UptimePercent)
}

func TestAggregateOpenIncidentOnly(t *testing.T) {
	log := Aggregate([]storage.Incident{openSince(10 * time.Minute)}, now.Add(-time.Hour), now)

	assert.Equal(t, 0, log.ResolvedIncidents)
	assert.Zero(t, log.AverageSeconds)
	assert.Zero(t, log.LongestSeconds)
	assert.Zero(t, log.ShortestSeconds)
	assert.Equal(t, int64(600), log.TotalDowntimeSeconds)
	assert.Equal(t, 83.333, log.UptimePercent)
}
