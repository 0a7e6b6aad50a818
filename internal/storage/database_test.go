package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTarget(name string) *Target {
	return &Target{
		Name:          name,
		URL:           "https://example.com/" + name,
		Method:        "GET",
		CheckInterval: 60,
		Timeout:       10,
		Enabled:       true,
	}
}

func TestTargetCRUD(t *testing.T) {
	db := newTestDatabase(t)

	target := newTarget("api")
	require.NoError(t, db.CreateTarget(target))
	assert.NotZero(t, target.ID)
	assert.Equal(t, StatusUnknown, target.CurrentStatus)

	got, err := db.GetTarget(target.ID)
	require.NoError(t, err)
	assert.Equal(t, "api", got.Name)
	assert.Equal(t, AlertUnavailable, got.Policy())

	got.Timeout = 5
	require.NoError(t, db.UpdateTarget(got))

	got, err = db.GetTarget(target.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Timeout)

	_, err = db.GetTarget(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDisabledTarget(t *testing.T) {
	db := newTestDatabase(t)

	target := newTarget("paused")
	target.Enabled = false
	require.NoError(t, db.CreateTarget(target))

	got, err := db.GetTarget(target.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	enabled, err := db.ListEnabledTargets()
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestCreateTargetRejectsInvalid(t *testing.T) {
	db := newTestDatabase(t)

	short := newTarget("short")
	short.CheckInterval = 10
	assert.Error(t, db.CreateTarget(short))

	noTimeout := newTarget("no-timeout")
	noTimeout.Timeout = 0
	assert.Error(t, noTimeout.Validate())

	keyword := newTarget("keyword")
	keyword.AlertType = AlertContainsKeyword
	assert.Error(t, db.CreateTarget(keyword), "keyword kinds need a keyword")

	mixed := newTarget("mixed")
	mixed.AlertType = AlertContainsKeyword
	mixed.AlertKeyword = "error"
	mixed.AlertStatusCodes = "200"
	assert.Error(t, db.CreateTarget(mixed), "only one parameter set may be active")

	badHeaders := newTarget("headers")
	badHeaders.Headers = `{"X-Token": `
	assert.Error(t, db.CreateTarget(badHeaders))

	badCodes := newTarget("codes")
	badCodes.AlertType = AlertHTTPStatusOtherThan
	badCodes.AlertStatusCodes = "200,abc"
	assert.Error(t, db.CreateTarget(badCodes))

	ftp := newTarget("ftp")
	ftp.URL = "ftp://example.com"
	assert.Error(t, db.CreateTarget(ftp))
}

func TestUpdateTargetStatusTracksChanges(t *testing.T) {
	db := newTestDatabase(t)
	target := newTarget("status")
	require.NoError(t, db.CreateTarget(target))

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpdateTargetStatus(target.ID, StatusDown, first))

	got, err := db.GetTarget(target.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDown, got.CurrentStatus)
	require.NotNil(t, got.LastStatusChangeAt)
	assert.True(t, got.LastStatusChangeAt.Equal(first))

	second := first.Add(time.Minute)
	require.NoError(t, db.UpdateTargetStatus(target.ID, StatusDown, second))

	got, err = db.GetTarget(target.ID)
	require.NoError(t, err)
	assert.True(t, got.LastCheckAt.Equal(second))
	assert.True(t, got.LastStatusChangeAt.Equal(first), "unchanged status keeps the change time")

	assert.ErrorIs(t, db.UpdateTargetStatus(4242, StatusDown, second), ErrNotFound)
}

func TestIncidentLifecycle(t *testing.T) {
	db := newTestDatabase(t)
	target := newTarget("incident")
	require.NoError(t, db.CreateTarget(target))

	active, err := db.GetActiveIncident(target.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	incident := &Incident{TargetID: target.ID, StartedAt: start, ErrorMessage: "HTTP 503"}
	require.NoError(t, db.CreateIncident(incident))
	require.NoError(t, db.MarkNotified(incident.ID))

	active, err = db.GetActiveIncident(target.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, incident.ID, active.ID)
	assert.True(t, active.NotificationSent)

	resolved, err := db.ResolveIncident(incident.ID, start.Add(90*time.Second+400*time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, resolved.DurationSeconds)
	assert.Equal(t, int64(90), *resolved.DurationSeconds)

	_, err = db.ResolveIncident(incident.ID, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	active, err = db.GetActiveIncident(target.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	list, err := db.ListIncidents(target.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(90), *list[0].DurationSeconds)
}

func TestListIncidentsAllTargetsNewestFirst(t *testing.T) {
	db := newTestDatabase(t)
	a := newTarget("a")
	b := newTarget("b")
	require.NoError(t, db.CreateTarget(a))
	require.NoError(t, db.CreateTarget(b))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateIncident(&Incident{TargetID: a.ID, StartedAt: base}))
	require.NoError(t, db.CreateIncident(&Incident{TargetID: b.ID, StartedAt: base.Add(time.Hour)}))
	require.NoError(t, db.CreateIncident(&Incident{TargetID: a.ID, StartedAt: base.Add(2 * time.Hour)}))

	all, err := db.ListIncidents(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].TargetID)
	assert.Equal(t, b.ID, all[1].TargetID)

	limited, err := db.ListIncidents(0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteTargetCascades(t *testing.T) {
	db := newTestDatabase(t)
	target := newTarget("cascade")
	require.NoError(t, db.CreateTarget(target))
	require.NoError(t, db.CreateCheckResult(&CheckResult{TargetID: target.ID, Status: StatusDown}))
	require.NoError(t, db.CreateIncident(&Incident{TargetID: target.ID, StartedAt: time.Now()}))

	require.NoError(t, db.DeleteTarget(target.ID))

	results, err := db.GetRecentCheckResults(target.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	incidents, err := db.ListIncidents(target.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, incidents)

	assert.ErrorIs(t, db.DeleteTarget(target.ID), ErrNotFound)
}

func TestCheckResultStats(t *testing.T) {
	db := newTestDatabase(t)
	target := newTarget("stats")
	require.NoError(t, db.CreateTarget(target))

	require.NoError(t, db.CreateCheckResult(&CheckResult{TargetID: target.ID, Status: StatusOperational, ResponseTime: 100}))
	require.NoError(t, db.CreateCheckResult(&CheckResult{TargetID: target.ID, Status: StatusDegraded, ResponseTime: 300}))
	require.NoError(t, db.CreateCheckResult(&CheckResult{TargetID: target.ID, Status: StatusDown}))

	total, successful, avg, err := db.GetCheckResultStats(target.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), successful)
	assert.InDelta(t, 200, avg, 0.001)
}

func TestSchedulesJoinContacts(t *testing.T) {
	db := newTestDatabase(t)

	alice := &OnCallContact{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateContact(alice))
	assert.Error(t, db.CreateContact(&OnCallContact{Name: "NoMail", Email: "not-an-email"}))

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	late := &OnCallSchedule{ContactID: alice.ID, Label: "late", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour)}
	early := &OnCallSchedule{ContactID: alice.ID, Label: "early", StartTime: start, EndTime: start.Add(8 * time.Hour), Recurrence: RecurrenceWeekly}
	require.NoError(t, db.CreateSchedule(late))
	require.NoError(t, db.CreateSchedule(early))

	inverted := &OnCallSchedule{ContactID: alice.ID, StartTime: start, EndTime: start.Add(-time.Hour)}
	assert.Error(t, db.CreateSchedule(inverted))

	orphan := &OnCallSchedule{ContactID: 999, StartTime: start, EndTime: start.Add(time.Hour)}
	assert.ErrorIs(t, db.CreateSchedule(orphan), ErrNotFound)

	schedules, err := db.ListSchedules()
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "early", schedules[0].Label)
	assert.Equal(t, RecurrenceNone, schedules[1].Recurrence)
	assert.Equal(t, "Alice", schedules[0].Contact.Name)

	require.NoError(t, db.DeleteContact(alice.ID))
	schedules, err = db.ListSchedules()
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestParseStatusCodes(t *testing.T) {
	codes, err := ParseStatusCodes("")
	require.NoError(t, err)
	assert.Equal(t, []int{200}, codes)

	codes, err = ParseStatusCodes(" 200, 201 ,")
	require.NoError(t, err)
	assert.Equal(t, []int{200, 201}, codes)

	_, err = ParseStatusCodes("200,9999")
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders(`{"Authorization": "Bearer abc"}`)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", headers["Authorization"])

	headers, err = ParseHeaders("")
	require.NoError(t, err)
	assert.Empty(t, headers)

	_, err = ParseHeaders(`["not", "an", "object"]`)
	assert.Error(t, err)
}
